package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"paycore/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestPlanRepo_GetByProviderID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPlanRepo(mock)
	tenantID := uuid.New()
	providerID := "pl_1"
	now := time.Now()

	mock.ExpectQuery(`FROM plans WHERE tenant_id = \$1 AND provider_plan_id = \$2`).
		WithArgs(tenantID, providerID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "name", "description", "price", "interval", "interval_count", "status", "provider_plan_id", "features", "created_at", "updated_at"}).
			AddRow(uuid.New(), tenantID, "Pro", "", decimal.NewFromInt(49), models.IntervalMonth, 1, models.PlanStatusActive, &providerID, []string{"api"}, now, now))

	plan, err := repo.GetByProviderID(context.Background(), tenantID, providerID)

	require.NoError(t, err)
	assert.Equal(t, "Pro", plan.Name)
	require.NotNil(t, plan.ProviderPlanID)
	assert.Equal(t, "pl_1", *plan.ProviderPlanID)
	assert.Equal(t, []string{"api"}, plan.Features)
}

func TestPlanRepo_CreateStoresEmptyFeatureList(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPlanRepo(mock)
	providerID := "pl_2"
	plan := &models.Plan{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		Name:           "Basic",
		Price:          decimal.NewFromInt(19),
		Interval:       models.IntervalMonth,
		IntervalCount:  1,
		Status:         models.PlanStatusActive,
		ProviderPlanID: &providerID,
	}

	mock.ExpectExec(`INSERT INTO plans`).
		WithArgs(plan.ID, plan.TenantID, plan.Name, plan.Description, plan.Price, plan.Interval, plan.IntervalCount, plan.Status, plan.ProviderPlanID, []string{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), plan)

	require.NoError(t, err)
}

func TestPlan_FeatureList(t *testing.T) {
	assert.NotNil(t, (&models.Plan{}).FeatureList())
	assert.Equal(t, []string{"api"}, (&models.Plan{Features: []string{"api"}}).FeatureList())
}

func TestPlanRepo_UpdateMissingRow(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPlanRepo(mock)
	plan := &models.Plan{ID: uuid.New(), TenantID: uuid.New(), Name: "Pro", Status: models.PlanStatusInactive}

	mock.ExpectExec(`UPDATE plans SET name = \$1, description = \$2, status = \$3, features = \$4`).
		WithArgs(plan.Name, plan.Description, plan.Status, []string{}, plan.TenantID, plan.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), plan)

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSubscriptionRepo_UpdateStatusIsConditional(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSubscriptionRepo(mock)
	end := time.Now()
	sub := &models.Subscription{ID: uuid.New(), TenantID: uuid.New(), Status: models.SubscriptionStatusCanceled, EndDate: &end}

	mock.ExpectExec(`UPDATE subscriptions SET status = \$1, end_date = \$2, cancel_at_period_end = \$3, updated_at = NOW\(\) WHERE tenant_id = \$4 AND id = \$5 AND status = \$6`).
		WithArgs(sub.Status, sub.EndDate, false, sub.TenantID, sub.ID, models.SubscriptionStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.UpdateStatus(context.Background(), sub, models.SubscriptionStatusActive)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionRepo_GetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSubscriptionRepo(mock)
	tenantID, id := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM subscriptions WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(tenantID, id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), tenantID, id)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoiceRepo_MarkPaidOnlyFromOpenStates(t *testing.T) {
	mock := newMockPool(t)
	repo := NewInvoiceRepo(mock)
	tenantID, id := uuid.New(), uuid.New()
	paidAt := time.Now()
	meta := models.ProviderMetadata{Provider: "gateway"}

	mock.ExpectExec(`UPDATE invoices SET status = 'paid', paid_at = \$1, metadata = .+, updated_at = NOW\(\) WHERE tenant_id = \$3 AND id = \$4 AND status IN \('draft', 'open'\)`).
		WithArgs(paidAt, meta, tenantID, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.MarkPaid(context.Background(), tenantID, id, paidAt, meta)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvoiceRepo_VoidOnlyFromOpenStates(t *testing.T) {
	mock := newMockPool(t)
	repo := NewInvoiceRepo(mock)
	tenantID, id := uuid.New(), uuid.New()
	patch := models.ProviderMetadata{Raw: models.JSONB{"last_webhook_event_id": "evt_4"}}

	mock.ExpectExec(`UPDATE invoices SET status = 'void', metadata = .+, updated_at = NOW\(\) WHERE tenant_id = \$2 AND id = \$3 AND status IN \('draft', 'open'\)`).
		WithArgs(patch, tenantID, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.Void(context.Background(), tenantID, id, patch)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvoiceRepo_UpdateMetadataMissingRow(t *testing.T) {
	mock := newMockPool(t)
	repo := NewInvoiceRepo(mock)
	tenantID, id := uuid.New(), uuid.New()
	patch := models.ProviderMetadata{PaymentURL: "https://pay"}

	mock.ExpectExec(`UPDATE invoices SET metadata = .+ WHERE tenant_id = \$2 AND id = \$3`).
		WithArgs(patch, tenantID, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateMetadata(context.Background(), tenantID, id, patch)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoiceRepo_FindByProviderID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewInvoiceRepo(mock)
	now := time.Now()
	items := models.InvoiceItems{{Description: "Seats", Amount: decimal.NewFromInt(10), Quantity: 2}}

	mock.ExpectQuery(`FROM invoices WHERE provider_invoice_id = \$1`).
		WithArgs("ch_inv").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "subscription_id", "customer_id", "amount", "status", "due_date", "paid_at", "provider_invoice_id", "payment_url", "items", "metadata", "created_at", "updated_at"}).
			AddRow(uuid.New(), uuid.New(), nil, "cus_1", decimal.NewFromInt(20), models.InvoiceStatusOpen, now, nil, "ch_inv", "https://pay", items, models.ProviderMetadata{}, now, now))

	inv, err := repo.FindByProviderID(context.Background(), "ch_inv")

	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOpen, inv.Status)
	assert.Nil(t, inv.SubscriptionID)
	assert.True(t, inv.Items.Total().Equal(decimal.NewFromInt(20)))
}

func TestGatewayConfigRepo_ListActive(t *testing.T) {
	mock := newMockPool(t)
	repo := NewGatewayConfigRepo(mock)
	now := time.Now()
	tenantA, tenantB := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM gateway_configs WHERE active = true`).
		WillReturnRows(pgxmock.NewRows([]string{"tenant_id", "client_id", "client_secret", "sandbox", "active", "updated_at"}).
			AddRow(tenantA, "a", "sa", true, true, now).
			AddRow(tenantB, "b", "sb", false, true, now))

	configs, err := repo.ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.True(t, configs[0].Sandbox)
	assert.Equal(t, tenantB, configs[1].TenantID)
}

func TestWebhookConfigRepo_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewWebhookConfigRepo(mock)
	tenantID := uuid.New()

	mock.ExpectQuery(`FROM webhook_configs WHERE tenant_id = \$1`).
		WithArgs(tenantID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByTenant(context.Background(), tenantID)

	assert.ErrorIs(t, err, ErrNotFound)
}
