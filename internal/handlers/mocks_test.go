package handlers

import (
	"context"
	"net/http"
	"time"

	"paycore/internal/models"
	"paycore/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) CreatePayment(ctx context.Context, tenantID uuid.UUID, req services.CreatePaymentRequest) (*services.PaymentResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentResponse), args.Error(1)
}

func (m *MockTransactionService) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetPaymentStatus(ctx context.Context, tenantID, id uuid.UUID) (*services.PaymentResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentResponse), args.Error(1)
}

func (m *MockTransactionService) ListPayments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Transaction, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) ApplyStatus(ctx context.Context, tx *models.Transaction, next models.TransactionStatus, patch models.ProviderMetadata, source string) (*models.Transaction, bool, error) {
	args := m.Called(ctx, tx, next, patch, source)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Transaction), args.Bool(1), args.Error(2)
}

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Create(ctx context.Context, tenantID uuid.UUID, input services.SubscriptionInput) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) GetByID(ctx context.Context, tenantID, subscriptionID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Subscription, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Cancel(ctx context.Context, tenantID, subscriptionID uuid.UUID, atPeriodEnd bool) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID, subscriptionID, atPeriodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) SyncStatus(ctx context.Context, sub *models.Subscription, remote services.SubscriptionResponse) (bool, error) {
	args := m.Called(ctx, sub, remote)
	return args.Bool(0), args.Error(1)
}

type MockWebhookReceiver struct {
	mock.Mock
}

func (m *MockWebhookReceiver) ProcessIncomingWebhook(ctx context.Context, provider string, payload map[string]interface{}, headers http.Header) services.WebhookResult {
	args := m.Called(ctx, provider, payload, headers)
	return args.Get(0).(services.WebhookResult)
}

type MockWebhookArchive struct {
	mock.Mock
}

func (m *MockWebhookArchive) Store(ctx context.Context, provider string, body []byte, receivedAt time.Time) (string, error) {
	args := m.Called(ctx, provider, body, receivedAt)
	return args.String(0), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) ReleaseLock(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }
