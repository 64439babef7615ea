package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paycore/internal/common"
	"paycore/internal/models"
	"paycore/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type PaymentHandlersTestSuite struct {
	suite.Suite
	e        *echo.Echo
	service  *MockTransactionService
	handlers *PaymentHandlers
	tenantID uuid.UUID
}

func (s *PaymentHandlersTestSuite) SetupTest() {
	s.e = echo.New()
	s.service = new(MockTransactionService)
	s.handlers = NewPaymentHandlers(s.service, zap.NewNop())
	s.tenantID = uuid.New()
}

func (s *PaymentHandlersTestSuite) TearDownTest() {
	s.service.AssertExpectations(s.T())
}

func TestPaymentHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentHandlersTestSuite))
}

func (s *PaymentHandlersTestSuite) newContext(method, target, body string, authenticated bool) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authenticated {
		req = req.WithContext(common.WithIdentity(context.Background(), uuid.New(), s.tenantID))
	}
	rec := httptest.NewRecorder()
	return s.e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *PaymentHandlersTestSuite) TestCreatePayment_Created() {
	req := services.CreatePaymentRequest{CustomerID: "cus_1", Amount: decimal.RequireFromString("10.50"), Method: models.PaymentMethodPix}
	s.service.On("CreatePayment", mock.Anything, s.tenantID, mock.MatchedBy(func(r services.CreatePaymentRequest) bool {
		return r.CustomerID == req.CustomerID && r.Amount.Equal(req.Amount) && r.Method == req.Method
	})).Return(&services.PaymentResponse{TransactionID: uuid.New(), Status: models.TransactionStatusPending, Simulated: true}, nil)

	c, rec := s.newContext(http.MethodPost, "/v1/payments", `{"customer_id":"cus_1","amount":"10.50","payment_method":"pix"}`, true)

	require.NoError(s.T(), s.handlers.CreatePayment(c))
	assert.Equal(s.T(), http.StatusCreated, rec.Code)

	var got services.PaymentResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(s.T(), models.TransactionStatusPending, got.Status)
	assert.True(s.T(), got.Simulated)
}

func (s *PaymentHandlersTestSuite) TestCreatePayment_Unauthenticated() {
	c, rec := s.newContext(http.MethodPost, "/v1/payments", `{}`, false)

	require.NoError(s.T(), s.handlers.CreatePayment(c))
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *PaymentHandlersTestSuite) TestCreatePayment_ErrorMapping() {
	cases := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"validation", &services.ValidationError{Field: "amount", Message: "must be positive"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not configured", &services.ConfigurationError{TenantID: s.tenantID, Reason: "no gateway"}, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"no token", &services.AuthError{TenantID: s.tenantID}, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"gateway", &services.GatewayError{Operation: "create_charge", StatusCode: 500, Body: "secret detail"}, http.StatusBadGateway, "GATEWAY_ERROR"},
		{"storage", &services.StorageError{Operation: "insert", Err: errors.New("conn refused")}, http.StatusInternalServerError, "SERVER_ERROR"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.service.On("CreatePayment", mock.Anything, s.tenantID, mock.Anything).Return(nil, tc.err).Once()
			c, rec := s.newContext(http.MethodPost, "/v1/payments", `{"customer_id":"cus_1","amount":"1","payment_method":"pix"}`, true)

			require.NoError(s.T(), s.handlers.CreatePayment(c))

			assert.Equal(s.T(), tc.code, rec.Code)
			resp := decodeError(s.T(), rec)
			assert.Equal(s.T(), tc.kind, resp.Error.Code)
			assert.NotContains(s.T(), rec.Body.String(), "secret detail")
			assert.NotContains(s.T(), rec.Body.String(), "conn refused")
		})
	}
}

func (s *PaymentHandlersTestSuite) TestGetPaymentStatus_NotFound() {
	id := uuid.New()
	s.service.On("GetPaymentStatus", mock.Anything, s.tenantID, id).
		Return(nil, &services.NotFoundError{Resource: "transaction", ID: id.String()})

	c, rec := s.newContext(http.MethodGet, "/v1/payments/"+id.String()+"/status", "", true)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(s.T(), s.handlers.GetPaymentStatus(c))
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *PaymentHandlersTestSuite) TestGetPayment_InvalidID() {
	c, rec := s.newContext(http.MethodGet, "/v1/payments/nope", "", true)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	require.NoError(s.T(), s.handlers.GetPayment(c))
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *PaymentHandlersTestSuite) TestListPayments_Pagination() {
	s.service.On("ListPayments", mock.Anything, s.tenantID, 100, 40).Return([]*models.Transaction{}, nil)

	c, rec := s.newContext(http.MethodGet, "/v1/payments?limit=500&offset=40", "", true)

	require.NoError(s.T(), s.handlers.ListPayments(c))
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *PaymentHandlersTestSuite) TestListPayments_BadLimit() {
	c, rec := s.newContext(http.MethodGet, "/v1/payments?limit=abc", "", true)

	require.NoError(s.T(), s.handlers.ListPayments(c))
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func TestCancelSubscription_AtPeriodEnd(t *testing.T) {
	e := echo.New()
	service := new(MockSubscriptionService)
	h := NewSubscriptionHandlers(service, zap.NewNop())
	tenantID, id := uuid.New(), uuid.New()

	service.On("Cancel", mock.Anything, tenantID, id, true).
		Return(&models.Subscription{ID: id, Status: models.SubscriptionStatusActive, CancelAtPeriodEnd: true}, nil)

	req := httptest.NewRequest(http.MethodPut, "/v1/subscriptions/"+id.String()+"/cancel?at_period_end=true", nil).
		WithContext(common.WithIdentity(context.Background(), uuid.New(), tenantID))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, h.CancelSubscription(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cancel_at_period_end":true`)
	service.AssertExpectations(t)
}
