package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"paycore/internal/metrics"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tokenLifetimeFactor trims the provider-declared lifetime so a token is
// never used in its final seconds.
const tokenLifetimeFactor = 0.9

// GatewayEndpoints holds the base URLs for both gateway environments.
type GatewayEndpoints struct {
	SandboxURL    string
	ProductionURL string
}

func (e GatewayEndpoints) BaseURL(sandbox bool) string {
	if sandbox {
		return strings.TrimRight(e.SandboxURL, "/")
	}
	return strings.TrimRight(e.ProductionURL, "/")
}

// AuthClient hands out per-tenant gateway bearer tokens.
type AuthClient interface {
	// GetToken returns a usable token or nil. A nil token means the caller
	// cannot reach the gateway for this tenant right now.
	GetToken(ctx context.Context, tenantID uuid.UUID) *models.AuthToken
	Invalidate(tenantID uuid.UUID)
}

type authClient struct {
	configs   repositories.GatewayConfigRepository
	endpoints GatewayEndpoints
	http      *http.Client
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	tokens   map[uuid.UUID]*models.AuthToken
	fetching map[uuid.UUID]*sync.Mutex
}

// NewAuthClient creates a token cache backed by the tenant gateway configs.
func NewAuthClient(configs repositories.GatewayConfigRepository, endpoints GatewayEndpoints, httpClient *http.Client, logger *zap.Logger) AuthClient {
	return &authClient{
		configs:   configs,
		endpoints: endpoints,
		http:      httpClient,
		logger:    logger.Named("auth"),
		now:       time.Now,
		tokens:    make(map[uuid.UUID]*models.AuthToken),
		fetching:  make(map[uuid.UUID]*sync.Mutex),
	}
}

func (c *authClient) cached(tenantID uuid.UUID) *models.AuthToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	token := c.tokens[tenantID]
	if token.Valid(c.now()) {
		return token
	}
	return nil
}

func (c *authClient) tenantLock(tenantID uuid.UUID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.fetching[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		c.fetching[tenantID] = lock
	}
	return lock
}

func (c *authClient) GetToken(ctx context.Context, tenantID uuid.UUID) *models.AuthToken {
	if token := c.cached(tenantID); token != nil {
		return token
	}

	// One exchange per tenant at a time; whoever waited gets the fresh token.
	lock := c.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()
	if token := c.cached(tenantID); token != nil {
		return token
	}

	token := c.fetch(ctx, tenantID)
	if token == nil {
		metrics.TokenFetches.WithLabelValues("failure").Inc()
		return nil
	}
	metrics.TokenFetches.WithLabelValues("success").Inc()

	c.mu.Lock()
	c.tokens[tenantID] = token
	c.mu.Unlock()
	return token
}

func (c *authClient) Invalidate(tenantID uuid.UUID) {
	c.mu.Lock()
	delete(c.tokens, tenantID)
	c.mu.Unlock()
}

func (c *authClient) fetch(ctx context.Context, tenantID uuid.UUID) *models.AuthToken {
	log := c.logger.With(zap.String("tenant_id", tenantID.String()))

	cfg, err := c.configs.GetByTenant(ctx, tenantID)
	if err != nil {
		log.Info("gateway credentials unavailable", zap.Error(err))
		return nil
	}
	if !cfg.Active || cfg.ClientID == "" || cfg.ClientSecret == "" {
		log.Info("gateway credentials incomplete or inactive")
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	endpoint := c.endpoints.BaseURL(cfg.Sandbox) + "/oauth/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("failed to build token request", zap.Error(err))
		return nil
	}
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("token request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Warn("failed to read token response", zap.Error(err))
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("token request rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil
	}

	var tr models.TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		log.Warn("failed to decode token response", zap.Error(err))
		return nil
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		log.Warn("token response missing access_token or expires_in")
		return nil
	}

	lifetime := time.Duration(float64(tr.ExpiresIn) * tokenLifetimeFactor * float64(time.Second))
	return &models.AuthToken{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		ExpiresAt:   c.now().Add(lifetime),
		Scope:       tr.Scope,
	}
}
