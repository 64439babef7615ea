package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Plan struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	TenantID       uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description" db:"description"`
	Price          decimal.Decimal `json:"price" db:"price"`
	Interval       BillingInterval `json:"interval" db:"interval"`
	IntervalCount  int             `json:"interval_count" db:"interval_count"`
	Status         PlanStatus      `json:"status" db:"status"`
	ProviderPlanID *string         `json:"provider_plan_id" db:"provider_plan_id"`
	Features       []string        `json:"features" db:"features"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// FeatureList never returns nil; the features column is NOT NULL.
func (p *Plan) FeatureList() []string {
	if p.Features == nil {
		return []string{}
	}
	return p.Features
}
