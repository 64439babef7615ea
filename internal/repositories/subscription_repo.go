package repositories

import (
	"context"

	"paycore/internal/models"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Subscription, error)
	GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerSubscriptionID string) (*models.Subscription, error)
	// UpdateStatus is conditional on the stored status still being from.
	UpdateStatus(ctx context.Context, subscription *models.Subscription, from models.SubscriptionStatus) (bool, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Subscription, error)
}

const subscriptionColumns = `id, tenant_id, customer_id, plan_id, status, start_date, end_date, cancel_at_period_end, provider_subscription_id, created_at, updated_at`

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func scanSubscription(row scanner) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(&s.ID, &s.TenantID, &s.CustomerID, &s.PlanID, &s.Status, &s.StartDate, &s.EndDate, &s.CancelAtPeriodEnd, &s.ProviderSubscriptionID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return s, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, customer_id, plan_id, status, start_date, end_date, cancel_at_period_end, provider_subscription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, subscription.ID, subscription.TenantID, subscription.CustomerID, subscription.PlanID, subscription.Status, subscription.StartDate, subscription.EndDate, subscription.CancelAtPeriodEnd, subscription.ProviderSubscriptionID)
	return err
}

func (r *subscriptionRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1 AND id = $2
	`
	return scanSubscription(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *subscriptionRepo) GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerSubscriptionID string) (*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1 AND provider_subscription_id = $2
	`
	return scanSubscription(r.db.QueryRow(ctx, query, tenantID, providerSubscriptionID))
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, subscription *models.Subscription, from models.SubscriptionStatus) (bool, error) {
	query := `
		UPDATE subscriptions
		SET status = $1, end_date = $2, cancel_at_period_end = $3, updated_at = NOW()
		WHERE tenant_id = $4 AND id = $5 AND status = $6
	`
	tag, err := r.db.Exec(ctx, query, subscription.Status, subscription.EndDate, subscription.CancelAtPeriodEnd, subscription.TenantID, subscription.ID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Subscription, error) {
	limit, offset = pageBounds(limit, offset)
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subscriptions []*models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, s)
	}
	return subscriptions, rows.Err()
}
