package models

import (
	"time"

	"github.com/google/uuid"
)

type Subscription struct {
	ID                     uuid.UUID          `json:"id" db:"id"`
	TenantID               uuid.UUID          `json:"tenant_id" db:"tenant_id"`
	CustomerID             string             `json:"customer_id" db:"customer_id"`
	PlanID                 uuid.UUID          `json:"plan_id" db:"plan_id"`
	Status                 SubscriptionStatus `json:"status" db:"status"`
	StartDate              time.Time          `json:"start_date" db:"start_date"`
	EndDate                *time.Time         `json:"end_date" db:"end_date"`
	CancelAtPeriodEnd      bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	ProviderSubscriptionID *string            `json:"provider_subscription_id" db:"provider_subscription_id"`
	CreatedAt              time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at" db:"updated_at"`
}
