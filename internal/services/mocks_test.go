package services

import (
	"context"
	"time"

	"paycore/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByProviderTransactionID(ctx context.Context, providerTransactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, providerTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx *models.Transaction, from models.TransactionStatus) (bool, error) {
	args := m.Called(ctx, tx, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) UpdateMetadata(ctx context.Context, tenantID, id uuid.UUID, metadata models.ProviderMetadata) error {
	args := m.Called(ctx, tenantID, id, metadata)
	return args.Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Transaction, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Plan, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerPlanID string) (*models.Plan, error) {
	args := m.Called(ctx, tenantID, providerPlanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) Update(ctx context.Context, plan *models.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Plan, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerSubscriptionID string) (*models.Subscription, error) {
	args := m.Called(ctx, tenantID, providerSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) UpdateStatus(ctx context.Context, sub *models.Subscription, from models.SubscriptionStatus) (bool, error) {
	args := m.Called(ctx, sub, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Subscription, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerInvoiceID string) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, providerInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByProviderID(ctx context.Context, providerInvoiceID string) (*models.Invoice, error) {
	args := m.Called(ctx, providerInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) MarkPaid(ctx context.Context, tenantID, id uuid.UUID, paidAt time.Time, metadata models.ProviderMetadata) (bool, error) {
	args := m.Called(ctx, tenantID, id, paidAt, metadata)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) Void(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) (bool, error) {
	args := m.Called(ctx, tenantID, id, patch)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateMetadata(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) error {
	args := m.Called(ctx, tenantID, id, patch)
	return args.Error(0)
}

func (m *MockInvoiceRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

type MockWebhookConfigRepository struct {
	mock.Mock
}

func (m *MockWebhookConfigRepository) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.WebhookConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookConfig), args.Error(1)
}

type MockGatewayConfigRepository struct {
	mock.Mock
}

func (m *MockGatewayConfigRepository) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.GatewayConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GatewayConfig), args.Error(1)
}

func (m *MockGatewayConfigRepository) ListActive(ctx context.Context) ([]*models.GatewayConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GatewayConfig), args.Error(1)
}

type MockAuthClient struct {
	mock.Mock
}

func (m *MockAuthClient) GetToken(ctx context.Context, tenantID uuid.UUID) *models.AuthToken {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.AuthToken)
}

func (m *MockAuthClient) Invalidate(tenantID uuid.UUID) {
	m.Called(tenantID)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) ResolveBaseURL(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

func (m *MockGatewayClient) NewSession(ctx context.Context, tenantID uuid.UUID, baseURL string) (*GatewaySession, error) {
	args := m.Called(ctx, tenantID, baseURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewaySession), args.Error(1)
}

func (m *MockGatewayClient) Open(ctx context.Context, tenantID uuid.UUID) (*GatewaySession, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewaySession), args.Error(1)
}

func (m *MockGatewayClient) CreateCharge(ctx context.Context, s *GatewaySession, req ChargeRequest) (*ChargeResponse, error) {
	args := m.Called(ctx, s, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChargeResponse), args.Error(1)
}

func (m *MockGatewayClient) GetCharge(ctx context.Context, s *GatewaySession, chargeID string) (*ChargeResponse, error) {
	args := m.Called(ctx, s, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChargeResponse), args.Error(1)
}

func (m *MockGatewayClient) ListCharges(ctx context.Context, s *GatewaySession) ([]ChargeResponse, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ChargeResponse), args.Error(1)
}

func (m *MockGatewayClient) CreatePaymentLink(ctx context.Context, s *GatewaySession, chargeID string) (*PaymentLinkResponse, error) {
	args := m.Called(ctx, s, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentLinkResponse), args.Error(1)
}

func (m *MockGatewayClient) CreatePlan(ctx context.Context, s *GatewaySession, req CreatePlanRequest) (*PlanResponse, error) {
	args := m.Called(ctx, s, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PlanResponse), args.Error(1)
}

func (m *MockGatewayClient) ListPlans(ctx context.Context, s *GatewaySession) ([]PlanResponse, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PlanResponse), args.Error(1)
}

func (m *MockGatewayClient) CreateSubscription(ctx context.Context, s *GatewaySession, req CreateSubscriptionRequest) (*SubscriptionResponse, error) {
	args := m.Called(ctx, s, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionResponse), args.Error(1)
}

func (m *MockGatewayClient) CancelSubscription(ctx context.Context, s *GatewaySession, subscriptionID string, req CancelSubscriptionRequest) (*SubscriptionResponse, error) {
	args := m.Called(ctx, s, subscriptionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionResponse), args.Error(1)
}

func (m *MockGatewayClient) ListSubscriptions(ctx context.Context, s *GatewaySession) ([]SubscriptionResponse, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SubscriptionResponse), args.Error(1)
}

type MockWebhookNotifier struct {
	mock.Mock
}

func (m *MockWebhookNotifier) SendWebhookNotification(ctx context.Context, tenantID uuid.UUID, event string, payload map[string]interface{}) bool {
	args := m.Called(ctx, tenantID, event, payload)
	return args.Bool(0)
}
