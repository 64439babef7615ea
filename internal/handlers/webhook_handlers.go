package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"paycore/internal/caching"
	"paycore/internal/common"
	"paycore/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// WebhookHandlers handles provider callbacks.
type WebhookHandlers struct {
	receiver      services.WebhookReceiver
	archive       services.WebhookArchive
	cache         caching.CacheService
	webhookSecret string
	lockTTL       time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewWebhookHandlers creates a new webhook handlers instance. An empty
// webhookSecret disables signature verification.
func NewWebhookHandlers(
	receiver services.WebhookReceiver,
	archive services.WebhookArchive,
	cache caching.CacheService,
	webhookSecret string,
	lockTTL time.Duration,
	logger *zap.Logger,
) *WebhookHandlers {
	return &WebhookHandlers{
		receiver:      receiver,
		archive:       archive,
		cache:         cache,
		webhookSecret: webhookSecret,
		lockTTL:       lockTTL,
		logger:        logger.Named("webhooks"),
		now:           time.Now,
	}
}

// ProviderWebhook handles POST /webhooks/:provider
//
//	@Summary		Receive provider webhook
//	@Description	Verifies, archives and applies a provider callback. A concurrent delivery of the same X-Event-Id gets 409 and should be retried.
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			provider	path	string	true	"Provider name"
//	@Param			X-Webhook-Signature	header	string	false	"HMAC-SHA256 hex of the body"
//	@Param			X-Event-Id	header	string	false	"Provider event id"
//	@Success		200	{object}	services.WebhookResult
//	@Failure		400	{object}	services.WebhookResult
//	@Failure		401	{object}	echo.HTTPError
//	@Failure		409	{object}	services.WebhookResult
//	@Router			/webhooks/{provider} [post]
func (h *WebhookHandlers) ProviderWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	provider := c.Param("provider")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	if h.webhookSecret != "" {
		signature := c.Request().Header.Get(services.HeaderWebhookSignature)
		if signature == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "Missing webhook signature")
		}
		if !services.VerifySignature(h.webhookSecret, body, signature) {
			h.logger.Warn("invalid webhook signature", zap.String("provider", provider))
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
		}
	}

	if key, err := h.archive.Store(ctx, provider, body, h.now()); err != nil {
		h.logger.Warn("failed to archive webhook", zap.String("provider", provider), zap.Error(err))
	} else if key != "" {
		h.logger.Debug("webhook archived", zap.String("key", key))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return common.SendClientError(c, "Invalid JSON payload")
	}

	// One delivery of an event id at a time; a concurrent redelivery is told
	// to retry. Replays of finished events are processed again.
	if eventID := c.Request().Header.Get(services.HeaderProviderEventID); eventID != "" {
		lockKey := "webhook:" + provider + ":" + eventID
		token, err := h.cache.AcquireLock(ctx, lockKey, h.lockTTL)
		switch {
		case err != nil:
			h.logger.Warn("webhook event lock unavailable", zap.String("event_id", eventID), zap.Error(err))
		case token == "":
			return c.JSON(http.StatusConflict, services.WebhookResult{Success: false, Message: "event " + eventID + " is already being processed"})
		default:
			defer func() {
				if err := h.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
					h.logger.Warn("failed to release webhook event lock", zap.String("event_id", eventID), zap.Error(err))
				}
			}()
		}
	}

	result := h.receiver.ProcessIncomingWebhook(ctx, provider, payload, c.Request().Header)
	if !result.Success {
		h.logger.Info("webhook rejected", zap.String("provider", provider), zap.String("reason", result.Message))
		return c.JSON(http.StatusBadRequest, result)
	}

	return c.JSON(http.StatusOK, result)
}
