package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	TenantID    uuid.UUID         `json:"tenant_id" db:"tenant_id"`
	CustomerID  string            `json:"customer_id" db:"customer_id"`
	Amount      decimal.Decimal   `json:"amount" db:"amount"`
	Method      PaymentMethod     `json:"payment_method" db:"payment_method"`
	Status      TransactionStatus `json:"status" db:"status"`
	Description string            `json:"description" db:"description"`
	Metadata    ProviderMetadata  `json:"metadata" db:"metadata"`
	PaidAt      *time.Time        `json:"paid_at" db:"paid_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}
