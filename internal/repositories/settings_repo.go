package repositories

import (
	"context"

	"paycore/internal/models"

	"github.com/google/uuid"
)

// WebhookConfigRepository reads the tenant's outbound webhook settings. The
// rows are written by the tenant settings screens, not by this service.
type WebhookConfigRepository interface {
	GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.WebhookConfig, error)
}

// GatewayConfigRepository reads the tenant's gateway credentials.
type GatewayConfigRepository interface {
	GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.GatewayConfig, error)
	ListActive(ctx context.Context) ([]*models.GatewayConfig, error)
}

type webhookConfigRepo struct {
	db Database
}

func NewWebhookConfigRepo(db Database) WebhookConfigRepository {
	return &webhookConfigRepo{db: db}
}

func (r *webhookConfigRepo) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.WebhookConfig, error) {
	cfg := &models.WebhookConfig{}
	query := `
		SELECT tenant_id, url, secret_key, active, payment_integration_id, updated_at
		FROM webhook_configs
		WHERE tenant_id = $1
	`
	err := r.db.QueryRow(ctx, query, tenantID).Scan(&cfg.TenantID, &cfg.URL, &cfg.SecretKey, &cfg.Active, &cfg.PaymentIntegrationID, &cfg.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return cfg, nil
}

type gatewayConfigRepo struct {
	db Database
}

func NewGatewayConfigRepo(db Database) GatewayConfigRepository {
	return &gatewayConfigRepo{db: db}
}

func (r *gatewayConfigRepo) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.GatewayConfig, error) {
	cfg := &models.GatewayConfig{}
	query := `
		SELECT tenant_id, client_id, client_secret, sandbox, active, updated_at
		FROM gateway_configs
		WHERE tenant_id = $1
	`
	err := r.db.QueryRow(ctx, query, tenantID).Scan(&cfg.TenantID, &cfg.ClientID, &cfg.ClientSecret, &cfg.Sandbox, &cfg.Active, &cfg.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return cfg, nil
}

func (r *gatewayConfigRepo) ListActive(ctx context.Context) ([]*models.GatewayConfig, error) {
	query := `
		SELECT tenant_id, client_id, client_secret, sandbox, active, updated_at
		FROM gateway_configs
		WHERE active = true
		ORDER BY tenant_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.GatewayConfig
	for rows.Next() {
		cfg := &models.GatewayConfig{}
		if err := rows.Scan(&cfg.TenantID, &cfg.ClientID, &cfg.ClientSecret, &cfg.Sandbox, &cfg.Active, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
