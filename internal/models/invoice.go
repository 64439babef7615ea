package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	TenantID          uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	SubscriptionID    *uuid.UUID       `json:"subscription_id" db:"subscription_id"`
	CustomerID        string           `json:"customer_id" db:"customer_id"`
	Amount            decimal.Decimal  `json:"amount" db:"amount"`
	Status            InvoiceStatus    `json:"status" db:"status"`
	DueDate           time.Time        `json:"due_date" db:"due_date"`
	PaidAt            *time.Time       `json:"paid_at" db:"paid_at"`
	ProviderInvoiceID string           `json:"provider_invoice_id" db:"provider_invoice_id"`
	PaymentURL        string           `json:"payment_url" db:"payment_url"`
	Items             InvoiceItems     `json:"items" db:"items"`
	Metadata          ProviderMetadata `json:"metadata" db:"metadata"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

type InvoiceItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
}

// InvoiceItems is stored as a JSONB array.
type InvoiceItems []InvoiceItem

// Total sums amount * quantity over all items.
func (items InvoiceItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (items InvoiceItems) Value() (driver.Value, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]InvoiceItem(items))
}

func (items *InvoiceItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*items = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]InvoiceItem)(items))
	case string:
		return json.Unmarshal([]byte(v), (*[]InvoiceItem)(items))
	default:
		return errors.New("invoice items: unsupported source type")
	}
}
