package repositories

import (
	"context"

	"paycore/internal/models"

	"github.com/google/uuid"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Plan, error)
	GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerPlanID string) (*models.Plan, error)
	Update(ctx context.Context, plan *models.Plan) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Plan, error)
}

const planColumns = `id, tenant_id, name, description, price, interval, interval_count, status, provider_plan_id, features, created_at, updated_at`

type planRepo struct {
	db Database
}

func NewPlanRepo(db Database) PlanRepository {
	return &planRepo{db: db}
}

func scanPlan(row scanner) (*models.Plan, error) {
	plan := &models.Plan{}
	err := row.Scan(&plan.ID, &plan.TenantID, &plan.Name, &plan.Description, &plan.Price, &plan.Interval, &plan.IntervalCount, &plan.Status, &plan.ProviderPlanID, &plan.Features, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return plan, nil
}

func (r *planRepo) Create(ctx context.Context, plan *models.Plan) error {
	query := `
		INSERT INTO plans (id, tenant_id, name, description, price, interval, interval_count, status, provider_plan_id, features, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, plan.ID, plan.TenantID, plan.Name, plan.Description, plan.Price, plan.Interval, plan.IntervalCount, plan.Status, plan.ProviderPlanID, plan.FeatureList())
	return err
}

func (r *planRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE tenant_id = $1 AND id = $2
	`
	return scanPlan(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *planRepo) GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerPlanID string) (*models.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE tenant_id = $1 AND provider_plan_id = $2
	`
	return scanPlan(r.db.QueryRow(ctx, query, tenantID, providerPlanID))
}

func (r *planRepo) Update(ctx context.Context, plan *models.Plan) error {
	query := `
		UPDATE plans
		SET name = $1, description = $2, status = $3, features = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6
	`
	tag, err := r.db.Exec(ctx, query, plan.Name, plan.Description, plan.Status, plan.FeatureList(), plan.TenantID, plan.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *planRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Plan, error) {
	limit, offset = pageBounds(limit, offset)
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}
