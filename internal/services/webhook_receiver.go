package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"paycore/internal/metrics"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderProviderEventID carries the provider's delivery id, if it sends one.
const HeaderProviderEventID = "X-Event-Id"

type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WebhookReceiver applies provider status callbacks to local state.
type WebhookReceiver interface {
	ProcessIncomingWebhook(ctx context.Context, provider string, payload map[string]interface{}, headers http.Header) WebhookResult
}

type webhookReceiver struct {
	transactions repositories.TransactionRepository
	payments     TransactionService
	invoices     InvoiceService
	notifier     WebhookNotifier
	logger       *zap.Logger
}

func NewWebhookReceiver(transactions repositories.TransactionRepository, payments TransactionService, invoices InvoiceService, notifier WebhookNotifier, logger *zap.Logger) WebhookReceiver {
	return &webhookReceiver{
		transactions: transactions,
		payments:     payments,
		invoices:     invoices,
		notifier:     notifier,
		logger:       logger.Named("receiver"),
	}
}

func (r *webhookReceiver) ProcessIncomingWebhook(ctx context.Context, provider string, payload map[string]interface{}, headers http.Header) WebhookResult {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name != ProviderGateway {
		metrics.InboundWebhooks.WithLabelValues("unsupported", "rejected").Inc()
		return WebhookResult{Success: false, Message: "unsupported provider: " + provider}
	}

	result := r.processGateway(ctx, payload, headers)
	outcome := "applied"
	if !result.Success {
		outcome = "rejected"
	}
	metrics.InboundWebhooks.WithLabelValues(name, outcome).Inc()
	return result
}

func (r *webhookReceiver) processGateway(ctx context.Context, payload map[string]interface{}, headers http.Header) WebhookResult {
	paymentID := stringField(payload, "payment_id")
	if paymentID == "" {
		return WebhookResult{Success: false, Message: "missing payment_id"}
	}
	providerStatus := stringField(payload, "status")
	if providerStatus == "" {
		return WebhookResult{Success: false, Message: "missing status"}
	}

	log := r.logger.With(zap.String("payment_id", paymentID), zap.String("status", providerStatus))

	patch := models.ProviderMetadata{
		PaymentURL: stringField(payload, "payment_url"),
		Raw:        models.JSONB{"last_webhook": payload},
	}
	if eventID := headers.Get(HeaderProviderEventID); eventID != "" {
		patch.Raw["last_webhook_event_id"] = eventID
	}

	tx, err := r.findTransaction(ctx, paymentID)
	if err != nil {
		log.Error("failed to look up payment", zap.Error(err))
		return WebhookResult{Success: false, Message: "failed to load payment"}
	}
	if tx == nil {
		return r.processInvoice(ctx, paymentID, providerStatus, patch, log)
	}

	updated, changed, err := r.payments.ApplyStatus(ctx, tx, MapStatus(providerStatus), patch, "webhook")
	if err != nil {
		log.Error("failed to apply webhook status", zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		return WebhookResult{Success: false, Message: "failed to update payment"}
	}

	r.notifier.SendWebhookNotification(ctx, updated.TenantID, EventPaymentUpdated, paymentEventData(updated))
	if changed {
		return WebhookResult{Success: true, Message: fmt.Sprintf("payment %s is now %s", updated.ID, updated.Status)}
	}
	return WebhookResult{Success: true, Message: fmt.Sprintf("payment %s unchanged (%s)", updated.ID, updated.Status)}
}

func (r *webhookReceiver) processInvoice(ctx context.Context, paymentID, providerStatus string, patch models.ProviderMetadata, log *zap.Logger) WebhookResult {
	invoice, changed, err := r.invoices.HandleProviderPayment(ctx, paymentID, providerStatus, patch)
	if err != nil {
		log.Error("failed to apply webhook to invoice", zap.Error(err))
		return WebhookResult{Success: false, Message: "failed to update invoice"}
	}
	if invoice == nil {
		log.Warn("webhook for unknown payment")
		return WebhookResult{Success: false, Message: "payment not found: " + paymentID}
	}

	data := invoiceEventData(invoice)
	data["provider_status"] = providerStatus
	r.notifier.SendWebhookNotification(ctx, invoice.TenantID, EventPaymentUpdated, data)
	if changed {
		return WebhookResult{Success: true, Message: fmt.Sprintf("invoice %s is now %s", invoice.ID, invoice.Status)}
	}
	return WebhookResult{Success: true, Message: fmt.Sprintf("invoice %s unchanged (%s)", invoice.ID, invoice.Status)}
}

// findTransaction accepts either our transaction id or the provider's charge id.
func (r *webhookReceiver) findTransaction(ctx context.Context, paymentID string) (*models.Transaction, error) {
	if id, err := uuid.Parse(paymentID); err == nil {
		tx, err := r.transactions.FindByID(ctx, id)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	tx, err := r.transactions.FindByProviderTransactionID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}

func stringField(payload map[string]interface{}, key string) string {
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
