package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"paycore/internal/metrics"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// GatewaySession carries what one tenant-scoped series of gateway calls needs.
type GatewaySession struct {
	TenantID uuid.UUID
	BaseURL  string
	token    *models.AuthToken
}

// GatewayClient is the bearer-authenticated JSON API of the payment provider.
type GatewayClient interface {
	// ResolveBaseURL returns the environment URL for the tenant or a ConfigurationError.
	ResolveBaseURL(ctx context.Context, tenantID uuid.UUID) (string, error)
	// NewSession attaches a token to an already resolved base URL, or returns AuthError.
	NewSession(ctx context.Context, tenantID uuid.UUID, baseURL string) (*GatewaySession, error)
	// Open resolves the base URL and a token in one step.
	Open(ctx context.Context, tenantID uuid.UUID) (*GatewaySession, error)

	CreateCharge(ctx context.Context, s *GatewaySession, req ChargeRequest) (*ChargeResponse, error)
	GetCharge(ctx context.Context, s *GatewaySession, chargeID string) (*ChargeResponse, error)
	ListCharges(ctx context.Context, s *GatewaySession) ([]ChargeResponse, error)
	CreatePaymentLink(ctx context.Context, s *GatewaySession, chargeID string) (*PaymentLinkResponse, error)

	CreatePlan(ctx context.Context, s *GatewaySession, req CreatePlanRequest) (*PlanResponse, error)
	ListPlans(ctx context.Context, s *GatewaySession) ([]PlanResponse, error)

	CreateSubscription(ctx context.Context, s *GatewaySession, req CreateSubscriptionRequest) (*SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, s *GatewaySession, subscriptionID string, req CancelSubscriptionRequest) (*SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, s *GatewaySession) ([]SubscriptionResponse, error)
}

type ChargeRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	CustomerID    string          `json:"customer_id"`
	Description   string          `json:"description,omitempty"`
	Reference     string          `json:"reference,omitempty"`
}

type ChargeResponse struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentURL    string          `json:"payment_url"`
	CustomerID    string          `json:"customer_id"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference"`
	CreatedAt     time.Time       `json:"created_at"`
}

type PaymentLinkResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	ChargeID string `json:"charge_id"`
}

type CreatePlanRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Interval      string          `json:"interval"`
	IntervalCount int             `json:"interval_count"`
}

type PlanResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Interval      string          `json:"interval"`
	IntervalCount int             `json:"interval_count"`
	Status        string          `json:"status"`
}

type CreateSubscriptionRequest struct {
	PlanID     string     `json:"plan_id"`
	CustomerID string     `json:"customer_id"`
	StartDate  *time.Time `json:"start_date,omitempty"`
}

type SubscriptionResponse struct {
	ID                string     `json:"id"`
	PlanID            string     `json:"plan_id"`
	CustomerID        string     `json:"customer_id"`
	Status            string     `json:"status"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

type CancelSubscriptionRequest struct {
	AtPeriodEnd bool `json:"at_period_end"`
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

type gatewayClient struct {
	configs   repositories.GatewayConfigRepository
	auth      AuthClient
	endpoints GatewayEndpoints
	http      *http.Client
	logger    *zap.Logger
}

func NewGatewayClient(configs repositories.GatewayConfigRepository, auth AuthClient, endpoints GatewayEndpoints, httpClient *http.Client, logger *zap.Logger) GatewayClient {
	return &gatewayClient{
		configs:   configs,
		auth:      auth,
		endpoints: endpoints,
		http:      httpClient,
		logger:    logger.Named("gateway"),
	}
}

func (g *gatewayClient) ResolveBaseURL(ctx context.Context, tenantID uuid.UUID) (string, error) {
	cfg, err := g.configs.GetByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", &ConfigurationError{TenantID: tenantID, Reason: "no gateway configuration"}
		}
		return "", &StorageError{Operation: "load gateway config", Err: err}
	}
	if !cfg.Active {
		return "", &ConfigurationError{TenantID: tenantID, Reason: "gateway configuration inactive"}
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return "", &ConfigurationError{TenantID: tenantID, Reason: "gateway credentials missing"}
	}
	base := g.endpoints.BaseURL(cfg.Sandbox)
	if base == "" {
		return "", &ConfigurationError{TenantID: tenantID, Reason: "gateway environment URL not set"}
	}
	return base, nil
}

func (g *gatewayClient) NewSession(ctx context.Context, tenantID uuid.UUID, baseURL string) (*GatewaySession, error) {
	token := g.auth.GetToken(ctx, tenantID)
	if token == nil {
		return nil, &AuthError{TenantID: tenantID}
	}
	return &GatewaySession{TenantID: tenantID, BaseURL: baseURL, token: token}, nil
}

func (g *gatewayClient) Open(ctx context.Context, tenantID uuid.UUID) (*GatewaySession, error) {
	base, err := g.ResolveBaseURL(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return g.NewSession(ctx, tenantID, base)
}

func (g *gatewayClient) CreateCharge(ctx context.Context, s *GatewaySession, req ChargeRequest) (*ChargeResponse, error) {
	var out ChargeResponse
	if err := g.do(ctx, s, "create_charge", http.MethodPost, "/v1/charge", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gatewayClient) GetCharge(ctx context.Context, s *GatewaySession, chargeID string) (*ChargeResponse, error) {
	var out ChargeResponse
	if err := g.do(ctx, s, "get_charge", http.MethodGet, "/v1/charge/"+url.PathEscape(chargeID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gatewayClient) ListCharges(ctx context.Context, s *GatewaySession) ([]ChargeResponse, error) {
	var out listEnvelope[ChargeResponse]
	if err := g.do(ctx, s, "list_charges", http.MethodGet, "/v1/charge", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (g *gatewayClient) CreatePaymentLink(ctx context.Context, s *GatewaySession, chargeID string) (*PaymentLinkResponse, error) {
	var out PaymentLinkResponse
	path := "/v1/charge/" + url.PathEscape(chargeID) + "/link"
	if err := g.do(ctx, s, "create_payment_link", http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gatewayClient) CreatePlan(ctx context.Context, s *GatewaySession, req CreatePlanRequest) (*PlanResponse, error) {
	var out PlanResponse
	if err := g.do(ctx, s, "create_plan", http.MethodPost, "/v1/plan", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gatewayClient) ListPlans(ctx context.Context, s *GatewaySession) ([]PlanResponse, error) {
	var out listEnvelope[PlanResponse]
	if err := g.do(ctx, s, "list_plans", http.MethodGet, "/v1/plan", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (g *gatewayClient) CreateSubscription(ctx context.Context, s *GatewaySession, req CreateSubscriptionRequest) (*SubscriptionResponse, error) {
	var out SubscriptionResponse
	if err := g.do(ctx, s, "create_subscription", http.MethodPost, "/v1/subscription", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gatewayClient) CancelSubscription(ctx context.Context, s *GatewaySession, subscriptionID string, req CancelSubscriptionRequest) (*SubscriptionResponse, error) {
	var out SubscriptionResponse
	path := "/v1/subscription/" + url.PathEscape(subscriptionID) + "/cancel"
	if err := g.do(ctx, s, "cancel_subscription", http.MethodPut, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gatewayClient) ListSubscriptions(ctx context.Context, s *GatewaySession) ([]SubscriptionResponse, error) {
	var out listEnvelope[SubscriptionResponse]
	if err := g.do(ctx, s, "list_subscriptions", http.MethodGet, "/v1/subscription", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (g *gatewayClient) do(ctx context.Context, s *GatewaySession, op, method, path string, body, out interface{}) error {
	if s == nil || s.token == nil {
		return &AuthError{}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return &GatewayError{Operation: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(op, "transport_error").Inc()
		g.logger.Warn("gateway request failed",
			zap.String("operation", op),
			zap.String("tenant_id", s.TenantID.String()),
			zap.Error(err))
		return &GatewayError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(op, "transport_error").Inc()
		return &GatewayError{Operation: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.GatewayRequests.WithLabelValues(op, "http_error").Inc()
		if resp.StatusCode == http.StatusUnauthorized {
			g.auth.Invalidate(s.TenantID)
		}
		g.logger.Warn("gateway returned error status",
			zap.String("operation", op),
			zap.String("tenant_id", s.TenantID.String()),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return &GatewayError{Operation: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	metrics.GatewayRequests.WithLabelValues(op, "ok").Inc()
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Operation: op, StatusCode: resp.StatusCode, Body: string(raw), Err: err}
	}
	return nil
}
