package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"paycore/internal/metrics"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultInvoiceTerm = 7 * 24 * time.Hour

type InvoiceInput struct {
	CustomerID     string               `json:"customer_id"`
	SubscriptionID *uuid.UUID           `json:"subscription_id,omitempty"`
	Items          models.InvoiceItems  `json:"items"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	Description    string               `json:"description,omitempty"`
	Method         models.PaymentMethod `json:"payment_method,omitempty"`
	Currency       string               `json:"currency,omitempty"`
}

// InvoiceService issues invoices as gateway charges with a hosted payment link.
type InvoiceService interface {
	Create(ctx context.Context, tenantID uuid.UUID, input InvoiceInput) (*models.Invoice, error)
	GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	// MarkPaid settles an open invoice. It reports false when the invoice was
	// already settled or closed.
	MarkPaid(ctx context.Context, invoice *models.Invoice, patch models.ProviderMetadata) (*models.Invoice, bool, error)
	// ApplyChargeStatus moves an invoice to the status its charge status maps
	// to. Outcomes that leave the invoice open still record patch.
	ApplyChargeStatus(ctx context.Context, invoice *models.Invoice, providerStatus string, patch models.ProviderMetadata) (*models.Invoice, bool, error)
	// HandleProviderPayment applies a provider charge status to the invoice
	// billed by that charge. It returns nil when no invoice matches.
	HandleProviderPayment(ctx context.Context, providerChargeID, providerStatus string, patch models.ProviderMetadata) (*models.Invoice, bool, error)
}

type invoiceService struct {
	repo     repositories.InvoiceRepository
	gateway  GatewayClient
	notifier WebhookNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewInvoiceService(repo repositories.InvoiceRepository, gateway GatewayClient, notifier WebhookNotifier, logger *zap.Logger) InvoiceService {
	return &invoiceService{
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger.Named("invoices"),
		now:      time.Now,
	}
}

func validateInvoice(input InvoiceInput) error {
	if strings.TrimSpace(input.CustomerID) == "" {
		return &ValidationError{Field: "customer_id", Message: "is required"}
	}
	if len(input.Items) == 0 {
		return &ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return &ValidationError{Field: "items.quantity", Message: "must be greater than zero"}
		}
		if !item.Amount.IsPositive() {
			return &ValidationError{Field: "items.amount", Message: "must be greater than zero"}
		}
	}
	if input.Method != "" && !input.Method.Valid() {
		return &ValidationError{Field: "payment_method", Message: "is not supported"}
	}
	return nil
}

func (s *invoiceService) Create(ctx context.Context, tenantID uuid.UUID, input InvoiceInput) (*models.Invoice, error) {
	if err := validateInvoice(input); err != nil {
		return nil, err
	}
	method := input.Method
	if method == "" {
		method = models.PaymentMethodBankSlip
	}

	session, err := s.gateway.Open(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	invoiceID := uuid.New()
	customerID := strings.TrimSpace(input.CustomerID)
	total := input.Items.Total()

	charge, err := s.gateway.CreateCharge(ctx, session, ChargeRequest{
		Amount:        total,
		Currency:      input.Currency,
		PaymentMethod: string(method),
		CustomerID:    customerID,
		Description:   input.Description,
		Reference:     chargeReference(referenceInvoice, invoiceID),
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("tenant_id", tenantID.String()), zap.String("provider_charge_id", charge.ID))

	link, err := s.gateway.CreatePaymentLink(ctx, session, charge.ID)
	if err != nil {
		log.Error("invoice charge created but payment link failed", zap.Error(err))
		return nil, err
	}

	dueDate := s.now().UTC().Add(defaultInvoiceTerm)
	if input.DueDate != nil {
		dueDate = input.DueDate.UTC()
	}

	invoice := &models.Invoice{
		ID:                invoiceID,
		TenantID:          tenantID,
		SubscriptionID:    input.SubscriptionID,
		CustomerID:        customerID,
		Amount:            total,
		Status:            models.InvoiceStatusOpen,
		DueDate:           dueDate,
		ProviderInvoiceID: charge.ID,
		PaymentURL:        link.URL,
		Items:             input.Items,
		Metadata: models.ProviderMetadata{
			Provider:              ProviderGateway,
			ProviderTransactionID: charge.ID,
			PaymentURL:            link.URL,
		},
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		metrics.MirrorFailures.WithLabelValues("invoice").Inc()
		log.Error("invoice created at gateway but not stored", zap.Error(err))
		return nil, &MirrorError{Kind: "invoice", ProviderID: charge.ID, Err: err}
	}

	s.notifier.SendWebhookNotification(ctx, tenantID, EventInvoiceCreated, invoiceEventData(invoice))
	return invoice, nil
}

func (s *invoiceService) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "invoice", ID: invoiceID.String()}
		}
		return nil, &StorageError{Operation: "get invoice", Err: err}
	}
	return invoice, nil
}

func (s *invoiceService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	invoices, err := s.repo.List(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, &StorageError{Operation: "list invoices", Err: err}
	}
	return invoices, nil
}

func (s *invoiceService) MarkPaid(ctx context.Context, invoice *models.Invoice, patch models.ProviderMetadata) (*models.Invoice, bool, error) {
	if invoice.Status.IsTerminal() {
		return invoice, false, nil
	}

	paidAt := s.now().UTC()
	ok, err := s.repo.MarkPaid(ctx, invoice.TenantID, invoice.ID, paidAt, patch)
	if err != nil {
		return invoice, false, &StorageError{Operation: "mark invoice paid", Err: err}
	}
	if !ok {
		return s.reload(ctx, invoice)
	}

	updated := *invoice
	updated.Status = models.InvoiceStatusPaid
	updated.PaidAt = &paidAt
	updated.Metadata = invoice.Metadata.Clone()
	updated.Metadata.Merge(patch)
	s.notifier.SendWebhookNotification(ctx, invoice.TenantID, EventInvoicePaid, invoiceEventData(&updated))
	return &updated, true, nil
}

func (s *invoiceService) void(ctx context.Context, invoice *models.Invoice, patch models.ProviderMetadata) (*models.Invoice, bool, error) {
	if invoice.Status.IsTerminal() {
		return invoice, false, nil
	}

	ok, err := s.repo.Void(ctx, invoice.TenantID, invoice.ID, patch)
	if err != nil {
		return invoice, false, &StorageError{Operation: "void invoice", Err: err}
	}
	if !ok {
		return s.reload(ctx, invoice)
	}

	updated := *invoice
	updated.Status = models.InvoiceStatusVoid
	updated.Metadata = invoice.Metadata.Clone()
	updated.Metadata.Merge(patch)
	s.logger.Info("invoice voided",
		zap.String("tenant_id", invoice.TenantID.String()),
		zap.String("invoice_id", invoice.ID.String()))
	return &updated, true, nil
}

func (s *invoiceService) recordMetadata(ctx context.Context, invoice *models.Invoice, patch models.ProviderMetadata) (*models.Invoice, bool, error) {
	if invoice.Metadata.Contains(patch) {
		return invoice, false, nil
	}
	if err := s.repo.UpdateMetadata(ctx, invoice.TenantID, invoice.ID, patch); err != nil {
		return invoice, false, &StorageError{Operation: "update invoice metadata", Err: err}
	}
	updated := *invoice
	updated.Metadata = invoice.Metadata.Clone()
	updated.Metadata.Merge(patch)
	return &updated, false, nil
}

// reload returns the stored invoice after a conditional write lost to another writer.
func (s *invoiceService) reload(ctx context.Context, invoice *models.Invoice) (*models.Invoice, bool, error) {
	current, err := s.GetByID(ctx, invoice.TenantID, invoice.ID)
	if err != nil {
		return invoice, false, err
	}
	return current, false, nil
}

func (s *invoiceService) ApplyChargeStatus(ctx context.Context, invoice *models.Invoice, providerStatus string, patch models.ProviderMetadata) (*models.Invoice, bool, error) {
	switch MapInvoiceStatus(providerStatus) {
	case models.InvoiceStatusPaid:
		return s.MarkPaid(ctx, invoice, patch)
	case models.InvoiceStatusVoid:
		return s.void(ctx, invoice, patch)
	default:
		return s.recordMetadata(ctx, invoice, patch)
	}
}

func (s *invoiceService) HandleProviderPayment(ctx context.Context, providerChargeID, providerStatus string, patch models.ProviderMetadata) (*models.Invoice, bool, error) {
	invoice, err := s.repo.FindByProviderID(ctx, providerChargeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, &StorageError{Operation: "find invoice", Err: err}
	}
	return s.ApplyChargeStatus(ctx, invoice, providerStatus, patch)
}

func invoiceEventData(invoice *models.Invoice) map[string]interface{} {
	data := map[string]interface{}{
		"invoice_id":          invoice.ID.String(),
		"customer_id":         invoice.CustomerID,
		"amount":              invoice.Amount.String(),
		"status":              string(invoice.Status),
		"due_date":            invoice.DueDate.UTC().Format(time.RFC3339),
		"provider_invoice_id": invoice.ProviderInvoiceID,
		"payment_url":         invoice.PaymentURL,
	}
	if invoice.SubscriptionID != nil {
		data["subscription_id"] = invoice.SubscriptionID.String()
	}
	if invoice.PaidAt != nil {
		data["paid_at"] = invoice.PaidAt.UTC().Format(time.RFC3339)
	}
	return data
}
