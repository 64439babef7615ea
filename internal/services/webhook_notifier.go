package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"paycore/internal/metrics"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventPaymentCreated       = "payment.created"
	EventPaymentUpdated       = "payment.updated"
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionCanceled = "subscription.canceled"
	EventInvoiceCreated       = "invoice.created"
	EventInvoicePaid          = "invoice.paid"

	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderWebhookEvent     = "X-Webhook-Event"
)

// WebhookEnvelope is the body POSTed to tenant endpoints.
type WebhookEnvelope struct {
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// WebhookNotifier delivers signed event notifications to tenant endpoints.
type WebhookNotifier interface {
	// SendWebhookNotification makes a single delivery attempt. It reports
	// whether the tenant endpoint accepted the event; callers may ignore it.
	SendWebhookNotification(ctx context.Context, tenantID uuid.UUID, event string, payload map[string]interface{}) bool
}

type webhookNotifier struct {
	configs repositories.WebhookConfigRepository
	http    *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

func NewWebhookNotifier(configs repositories.WebhookConfigRepository, httpClient *http.Client, logger *zap.Logger) WebhookNotifier {
	return &webhookNotifier{
		configs: configs,
		http:    httpClient,
		logger:  logger.Named("notifier"),
		now:     time.Now,
	}
}

// SignPayload returns the lowercase hex HMAC-SHA256 of body under secret.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against the expected HMAC in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

func (n *webhookNotifier) SendWebhookNotification(ctx context.Context, tenantID uuid.UUID, event string, payload map[string]interface{}) bool {
	log := n.logger.With(zap.String("tenant_id", tenantID.String()), zap.String("event", event))

	cfg, err := n.configs.GetByTenant(ctx, tenantID)
	if err != nil {
		log.Debug("no webhook configuration", zap.Error(err))
		metrics.WebhookDeliveries.WithLabelValues(event, "skipped").Inc()
		return false
	}
	if !cfg.Active || cfg.URL == "" {
		metrics.WebhookDeliveries.WithLabelValues(event, "skipped").Inc()
		return false
	}

	body, err := json.Marshal(WebhookEnvelope{
		Event:     event,
		Timestamp: n.now().UTC().Format(time.RFC3339),
		Data:      payload,
	})
	if err != nil {
		log.Error("failed to encode webhook payload", zap.Error(err))
		metrics.WebhookDeliveries.WithLabelValues(event, "failed").Inc()
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		log.Warn("invalid webhook url", zap.Error(err))
		metrics.WebhookDeliveries.WithLabelValues(event, "failed").Inc()
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookSignature, SignPayload(cfg.SecretKey, body))
	req.Header.Set(HeaderWebhookEvent, event)

	resp, err := n.http.Do(req)
	if err != nil {
		log.Warn("webhook delivery failed", zap.Error(err))
		metrics.WebhookDeliveries.WithLabelValues(event, "failed").Inc()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Warn("webhook endpoint rejected delivery",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		metrics.WebhookDeliveries.WithLabelValues(event, "rejected").Inc()
		return false
	}

	metrics.WebhookDeliveries.WithLabelValues(event, "delivered").Inc()
	return true
}
