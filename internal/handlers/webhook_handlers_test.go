package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const inboundSecret = "inbound-secret"

type WebhookHandlersTestSuite struct {
	suite.Suite
	e        *echo.Echo
	receiver *MockWebhookReceiver
	archive  *MockWebhookArchive
	cache    *MockCacheService
	handlers *WebhookHandlers
}

func (s *WebhookHandlersTestSuite) SetupTest() {
	s.e = echo.New()
	s.receiver = new(MockWebhookReceiver)
	s.archive = new(MockWebhookArchive)
	s.cache = new(MockCacheService)
	s.handlers = NewWebhookHandlers(s.receiver, s.archive, s.cache, inboundSecret, time.Hour, zap.NewNop())
	s.handlers.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
}

func (s *WebhookHandlersTestSuite) TearDownTest() {
	s.receiver.AssertExpectations(s.T())
	s.archive.AssertExpectations(s.T())
	s.cache.AssertExpectations(s.T())
}

func TestWebhookHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookHandlersTestSuite))
}

func (s *WebhookHandlersTestSuite) post(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("gateway")

	err := s.handlers.ProviderWebhook(c)
	if err != nil {
		s.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func (s *WebhookHandlersTestSuite) TestValidSignature_Processed() {
	body := `{"payment_id":"ch_1","status":"paid"}`
	s.archive.On("Store", mock.Anything, "gateway", []byte(body), mock.Anything).Return("gateway/2024/05/01/x.json", nil)
	s.cache.On("AcquireLock", mock.Anything, "webhook:gateway:evt_1", time.Hour).Return("tok-1", nil)
	s.cache.On("ReleaseLock", mock.Anything, "webhook:gateway:evt_1", "tok-1").Return(nil)
	s.receiver.On("ProcessIncomingWebhook", mock.Anything, "gateway", mock.MatchedBy(func(p map[string]interface{}) bool {
		return p["payment_id"] == "ch_1" && p["status"] == "paid"
	}), mock.Anything).Return(services.WebhookResult{Success: true, Message: "payment ch_1 is now approved"})

	rec := s.post(body, map[string]string{
		services.HeaderWebhookSignature: services.SignPayload(inboundSecret, []byte(body)),
		services.HeaderProviderEventID:  "evt_1",
	})

	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "is now approved")
}

func (s *WebhookHandlersTestSuite) TestInvalidSignature_Rejected() {
	rec := s.post(`{"payment_id":"ch_1","status":"paid"}`, map[string]string{
		services.HeaderWebhookSignature: services.SignPayload("wrong", []byte(`{"payment_id":"ch_1","status":"paid"}`)),
	})

	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	s.receiver.AssertNotCalled(s.T(), "ProcessIncomingWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *WebhookHandlersTestSuite) TestMissingSignature_Rejected() {
	rec := s.post(`{"payment_id":"ch_1"}`, nil)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *WebhookHandlersTestSuite) TestEventInFlight_AskedToRetry() {
	body := `{"payment_id":"ch_1","status":"paid"}`
	s.archive.On("Store", mock.Anything, "gateway", mock.Anything, mock.Anything).Return("", nil)
	s.cache.On("AcquireLock", mock.Anything, "webhook:gateway:evt_1", time.Hour).Return("", nil)

	rec := s.post(body, map[string]string{
		services.HeaderWebhookSignature: services.SignPayload(inboundSecret, []byte(body)),
		services.HeaderProviderEventID:  "evt_1",
	})

	assert.Equal(s.T(), http.StatusConflict, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "already being processed")
	s.receiver.AssertNotCalled(s.T(), "ProcessIncomingWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *WebhookHandlersTestSuite) TestReplayedEvent_ReachesReceiverAgain() {
	body := `{"payment_id":"ch_1","status":"paid"}`
	headers := map[string]string{
		services.HeaderWebhookSignature: services.SignPayload(inboundSecret, []byte(body)),
		services.HeaderProviderEventID:  "evt_1",
	}
	s.archive.On("Store", mock.Anything, "gateway", mock.Anything, mock.Anything).Return("", nil)
	s.cache.On("AcquireLock", mock.Anything, "webhook:gateway:evt_1", time.Hour).Return("tok-1", nil).Once()
	s.cache.On("AcquireLock", mock.Anything, "webhook:gateway:evt_1", time.Hour).Return("tok-2", nil).Once()
	s.cache.On("ReleaseLock", mock.Anything, "webhook:gateway:evt_1", "tok-1").Return(nil).Once()
	s.cache.On("ReleaseLock", mock.Anything, "webhook:gateway:evt_1", "tok-2").Return(nil).Once()
	s.receiver.On("ProcessIncomingWebhook", mock.Anything, "gateway", mock.Anything, mock.Anything).
		Return(services.WebhookResult{Success: true, Message: "payment ch_1 unchanged (approved)"}).Twice()

	first := s.post(body, headers)
	second := s.post(body, headers)

	assert.Equal(s.T(), http.StatusOK, first.Code)
	assert.Equal(s.T(), http.StatusOK, second.Code)
	s.receiver.AssertNumberOfCalls(s.T(), "ProcessIncomingWebhook", 2)
}

func (s *WebhookHandlersTestSuite) TestLockFailure_StillProcessed() {
	body := `{"payment_id":"ch_1","status":"paid"}`
	s.archive.On("Store", mock.Anything, "gateway", mock.Anything, mock.Anything).Return("", nil)
	s.cache.On("AcquireLock", mock.Anything, "webhook:gateway:evt_5", time.Hour).Return("", errors.New("redis down"))
	s.receiver.On("ProcessIncomingWebhook", mock.Anything, "gateway", mock.Anything, mock.Anything).
		Return(services.WebhookResult{Success: true, Message: "payment ch_1 is now approved"}).Once()

	rec := s.post(body, map[string]string{
		services.HeaderWebhookSignature: services.SignPayload(inboundSecret, []byte(body)),
		services.HeaderProviderEventID:  "evt_5",
	})

	assert.Equal(s.T(), http.StatusOK, rec.Code)
	s.cache.AssertNotCalled(s.T(), "ReleaseLock", mock.Anything, mock.Anything, mock.Anything)
}

func (s *WebhookHandlersTestSuite) TestRejectedEvent_ReleasesLock() {
	body := `{"payment_id":"ch_unknown","status":"paid"}`
	s.archive.On("Store", mock.Anything, "gateway", mock.Anything, mock.Anything).Return("", errors.New("bucket offline"))
	s.cache.On("AcquireLock", mock.Anything, "webhook:gateway:evt_2", time.Hour).Return("tok-2", nil)
	s.cache.On("ReleaseLock", mock.Anything, "webhook:gateway:evt_2", "tok-2").Return(nil)
	s.receiver.On("ProcessIncomingWebhook", mock.Anything, "gateway", mock.Anything, mock.Anything).
		Return(services.WebhookResult{Success: false, Message: "payment not found: ch_unknown"})

	rec := s.post(body, map[string]string{
		services.HeaderWebhookSignature: services.SignPayload(inboundSecret, []byte(body)),
		services.HeaderProviderEventID:  "evt_2",
	})

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "payment not found")
}

func (s *WebhookHandlersTestSuite) TestInvalidJSON() {
	body := `not json`
	s.archive.On("Store", mock.Anything, "gateway", mock.Anything, mock.Anything).Return("", nil)

	rec := s.post(body, map[string]string{
		services.HeaderWebhookSignature: services.SignPayload(inboundSecret, []byte(body)),
	})

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func TestWebhook_NoSecretSkipsVerification(t *testing.T) {
	receiver := new(MockWebhookReceiver)
	archive := new(MockWebhookArchive)
	h := NewWebhookHandlers(receiver, archive, new(MockCacheService), "", time.Hour, zap.NewNop())

	archive.On("Store", mock.Anything, "gateway", mock.Anything, mock.Anything).Return("", nil)
	receiver.On("ProcessIncomingWebhook", mock.Anything, "gateway", mock.Anything, mock.Anything).
		Return(services.WebhookResult{Success: true, Message: "payment ch_1 unchanged (approved)"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(`{"payment_id":"ch_1","status":"paid"}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("gateway")

	require.NoError(t, h.ProviderWebhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	receiver.AssertExpectations(t)
}

// memoryLocks is an in-process CacheService for exercising real lock contention.
type memoryLocks struct {
	mu    sync.Mutex
	held  map[string]string
	count int
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{held: map[string]string{}}
}

func (m *memoryLocks) IsRateLimited(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

func (m *memoryLocks) AcquireLock(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", nil
	}
	m.count++
	token := "tok-" + strconv.Itoa(m.count)
	m.held[key] = token
	return token, nil
}

func (m *memoryLocks) ReleaseLock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

func (m *memoryLocks) Ping(context.Context) error { return nil }

func TestWebhook_ConcurrentDeliveryIsRetriedNotAcknowledged(t *testing.T) {
	receiver := new(MockWebhookReceiver)
	archive := new(MockWebhookArchive)
	h := NewWebhookHandlers(receiver, archive, newMemoryLocks(), "", time.Minute, zap.NewNop())
	e := echo.New()

	entered := make(chan struct{})
	release := make(chan struct{})
	archive.On("Store", mock.Anything, "gateway", mock.Anything, mock.Anything).Return("", nil)
	receiver.On("ProcessIncomingWebhook", mock.Anything, "gateway", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(services.WebhookResult{Success: false, Message: "failed to update payment"}).Once()
	receiver.On("ProcessIncomingWebhook", mock.Anything, "gateway", mock.Anything, mock.Anything).
		Return(services.WebhookResult{Success: true, Message: "payment ch_1 is now approved"}).Once()

	deliver := func() int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(`{"payment_id":"ch_1","status":"approved"}`))
		req.Header.Set(services.HeaderProviderEventID, "evt_1")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("provider")
		c.SetParamValues("gateway")
		if err := h.ProviderWebhook(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec.Code
	}

	first := make(chan int, 1)
	go func() { first <- deliver() }()
	<-entered

	assert.Equal(t, http.StatusConflict, deliver())

	close(release)
	assert.Equal(t, http.StatusBadRequest, <-first)

	assert.Equal(t, http.StatusOK, deliver())
	receiver.AssertNumberOfCalls(t, "ProcessIncomingWebhook", 2)
}
