package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookConfig is the tenant's outbound notification endpoint.
type WebhookConfig struct {
	TenantID             uuid.UUID `json:"tenant_id" db:"tenant_id"`
	URL                  string    `json:"url" db:"url"`
	SecretKey            string    `json:"-" db:"secret_key"`
	Active               bool      `json:"active" db:"active"`
	PaymentIntegrationID string    `json:"payment_integration_id" db:"payment_integration_id"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// GatewayConfig holds the tenant's gateway client credentials.
type GatewayConfig struct {
	TenantID     uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ClientID     string    `json:"client_id" db:"client_id"`
	ClientSecret string    `json:"-" db:"client_secret"`
	Sandbox      bool      `json:"sandbox" db:"sandbox"`
	Active       bool      `json:"active" db:"active"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
