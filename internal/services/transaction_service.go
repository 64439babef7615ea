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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ProviderGateway   = "gateway"
	ProviderSimulator = "simulator"

	referenceTransaction = "txn"
	referenceInvoice     = "inv"
)

type CreatePaymentRequest struct {
	CustomerID  string               `json:"customer_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Method      models.PaymentMethod `json:"payment_method"`
	Currency    string               `json:"currency,omitempty"`
	Description string               `json:"description,omitempty"`
}

type PaymentResponse struct {
	TransactionID         uuid.UUID                `json:"transaction_id"`
	Status                models.TransactionStatus `json:"status"`
	Amount                decimal.Decimal          `json:"amount"`
	Method                models.PaymentMethod     `json:"payment_method"`
	ProviderTransactionID string                   `json:"provider_transaction_id,omitempty"`
	PaymentURL            string                   `json:"payment_url,omitempty"`
	Simulated             bool                     `json:"simulated"`
}

// TransactionService owns the payment lifecycle and is the only writer of
// transaction status.
type TransactionService interface {
	CreatePayment(ctx context.Context, tenantID uuid.UUID, req CreatePaymentRequest) (*PaymentResponse, error)
	GetPayment(ctx context.Context, tenantID, id uuid.UUID) (*models.Transaction, error)
	GetPaymentStatus(ctx context.Context, tenantID, id uuid.UUID) (*PaymentResponse, error)
	ListPayments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Transaction, error)
	// ApplyStatus moves tx to next when the transition is allowed and merges
	// patch into its metadata. When the status does not move, a non-empty
	// patch is still stored. It returns the latest known row and whether the
	// status changed.
	ApplyStatus(ctx context.Context, tx *models.Transaction, next models.TransactionStatus, patch models.ProviderMetadata, source string) (*models.Transaction, bool, error)
}

type transactionService struct {
	repo      repositories.TransactionRepository
	gateway   GatewayClient
	simulator *PaymentSimulator
	notifier  WebhookNotifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewTransactionService(repo repositories.TransactionRepository, gateway GatewayClient, simulator *PaymentSimulator, notifier WebhookNotifier, logger *zap.Logger) TransactionService {
	return &transactionService{
		repo:      repo,
		gateway:   gateway,
		simulator: simulator,
		notifier:  notifier,
		logger:    logger.Named("transactions"),
		now:       time.Now,
	}
}

func validatePayment(req CreatePaymentRequest) error {
	if !req.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if !req.Method.Valid() {
		return &ValidationError{Field: "payment_method", Message: "is not supported"}
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return &ValidationError{Field: "customer_id", Message: "is required"}
	}
	return nil
}

func (s *transactionService) CreatePayment(ctx context.Context, tenantID uuid.UUID, req CreatePaymentRequest) (*PaymentResponse, error) {
	if err := validatePayment(req); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CustomerID:  strings.TrimSpace(req.CustomerID),
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      models.TransactionStatusPending,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, &StorageError{Operation: "create transaction", Err: err}
	}

	log := s.logger.With(zap.String("tenant_id", tenantID.String()), zap.String("transaction_id", tx.ID.String()))

	charge, patch := s.charge(ctx, tx, req, log)
	if charge != nil {
		updated, _, err := s.ApplyStatus(ctx, tx, MapStatus(charge.Status), patch, "create")
		if err != nil {
			log.Error("failed to persist charge result", zap.String("provider_transaction_id", charge.ID), zap.Error(err))
			tx.Metadata.Merge(patch)
		} else {
			tx = updated
		}
	}

	s.notifier.SendWebhookNotification(ctx, tenantID, EventPaymentCreated, paymentEventData(tx))
	return toPaymentResponse(tx), nil
}

// charge talks to the gateway or, for tenants without a usable gateway, the
// simulator. A nil charge leaves the transaction pending without a provider id.
func (s *transactionService) charge(ctx context.Context, tx *models.Transaction, req CreatePaymentRequest, log *zap.Logger) (*ChargeResponse, models.ProviderMetadata) {
	chargeReq := ChargeRequest{
		Amount:        tx.Amount,
		Currency:      req.Currency,
		PaymentMethod: string(tx.Method),
		CustomerID:    tx.CustomerID,
		Description:   tx.Description,
		Reference:     chargeReference(referenceTransaction, tx.ID),
	}

	session, err := s.gateway.Open(ctx, tx.TenantID)
	if err != nil {
		var cfgErr *ConfigurationError
		var authErr *AuthError
		if !errors.As(err, &cfgErr) && !errors.As(err, &authErr) {
			log.Error("failed to resolve gateway", zap.Error(err))
			return nil, models.ProviderMetadata{}
		}
		log.Info("gateway unavailable, using simulator", zap.String("reason", err.Error()))
		charge, err := s.simulator.CreateCharge(ctx, chargeReq)
		if err != nil {
			log.Warn("simulator charge failed", zap.Error(err))
			return nil, models.ProviderMetadata{}
		}
		return charge, models.ProviderMetadata{
			Provider:              ProviderSimulator,
			ProviderTransactionID: charge.ID,
			PaymentURL:            charge.PaymentURL,
			Simulated:             true,
		}
	}

	charge, err := s.gateway.CreateCharge(ctx, session, chargeReq)
	if err != nil {
		log.Error("gateway charge failed, payment left pending", zap.Error(err))
		return nil, models.ProviderMetadata{}
	}
	return charge, models.ProviderMetadata{
		Provider:              ProviderGateway,
		ProviderTransactionID: charge.ID,
		PaymentURL:            charge.PaymentURL,
	}
}

func (s *transactionService) GetPayment(ctx context.Context, tenantID, id uuid.UUID) (*models.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "transaction", ID: id.String()}
		}
		return nil, &StorageError{Operation: "get transaction", Err: err}
	}
	return tx, nil
}

func (s *transactionService) GetPaymentStatus(ctx context.Context, tenantID, id uuid.UUID) (*PaymentResponse, error) {
	tx, err := s.GetPayment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() || tx.Metadata.Simulated || IsSimulatedID(tx.Metadata.ProviderTransactionID) || tx.Metadata.ProviderTransactionID == "" {
		return toPaymentResponse(tx), nil
	}

	log := s.logger.With(zap.String("tenant_id", tenantID.String()), zap.String("transaction_id", id.String()))

	session, err := s.gateway.Open(ctx, tenantID)
	if err != nil {
		log.Warn("gateway unavailable, returning stored status", zap.Error(err))
		return toPaymentResponse(tx), nil
	}
	charge, err := s.gateway.GetCharge(ctx, session, tx.Metadata.ProviderTransactionID)
	if err != nil {
		log.Warn("gateway status lookup failed, returning stored status", zap.Error(err))
		return toPaymentResponse(tx), nil
	}

	mapped := MapStatus(charge.Status)
	if mapped == tx.Status {
		return toPaymentResponse(tx), nil
	}
	updated, changed, err := s.ApplyStatus(ctx, tx, mapped, models.ProviderMetadata{PaymentURL: charge.PaymentURL}, "poll")
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifier.SendWebhookNotification(ctx, tenantID, EventPaymentUpdated, paymentEventData(updated))
	}
	return toPaymentResponse(updated), nil
}

func (s *transactionService) ListPayments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Transaction, error) {
	txs, err := s.repo.List(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, &StorageError{Operation: "list transactions", Err: err}
	}
	return txs, nil
}

func (s *transactionService) ApplyStatus(ctx context.Context, tx *models.Transaction, next models.TransactionStatus, patch models.ProviderMetadata, source string) (*models.Transaction, bool, error) {
	current := tx
	for attempt := 0; attempt < 2; attempt++ {
		if !current.Status.CanTransitionTo(next) {
			if current.Metadata.Contains(patch) {
				return current, false, nil
			}
			merged := current.Metadata.Clone()
			merged.Merge(patch)
			if err := s.repo.UpdateMetadata(ctx, current.TenantID, current.ID, patch); err != nil {
				return current, false, &StorageError{Operation: "update transaction metadata", Err: err}
			}
			out := *current
			out.Metadata = merged
			return &out, false, nil
		}

		candidate := *current
		candidate.Metadata = current.Metadata.Clone()
		candidate.Metadata.Merge(patch)
		candidate.Status = next
		if next == models.TransactionStatusApproved && candidate.PaidAt == nil {
			paidAt := s.now().UTC()
			candidate.PaidAt = &paidAt
		}

		ok, err := s.repo.UpdateStatus(ctx, &candidate, current.Status)
		if err != nil {
			return current, false, &StorageError{Operation: "update transaction status", Err: err}
		}
		if ok {
			metrics.StatusTransitions.WithLabelValues(string(next), source).Inc()
			s.logger.Info("transaction status changed",
				zap.String("transaction_id", current.ID.String()),
				zap.String("from", string(current.Status)),
				zap.String("to", string(next)),
				zap.String("source", source))
			return &candidate, true, nil
		}

		// Another writer got there first; decide again against what it stored.
		reloaded, err := s.repo.GetByID(ctx, current.TenantID, current.ID)
		if err != nil {
			return current, false, &StorageError{Operation: "reload transaction", Err: err}
		}
		current = reloaded
	}
	return current, false, nil
}

func toPaymentResponse(tx *models.Transaction) *PaymentResponse {
	return &PaymentResponse{
		TransactionID:         tx.ID,
		Status:                tx.Status,
		Amount:                tx.Amount,
		Method:                tx.Method,
		ProviderTransactionID: tx.Metadata.ProviderTransactionID,
		PaymentURL:            tx.Metadata.PaymentURL,
		Simulated:             tx.Metadata.Simulated,
	}
}

func paymentEventData(tx *models.Transaction) map[string]interface{} {
	data := map[string]interface{}{
		"transaction_id": tx.ID.String(),
		"customer_id":    tx.CustomerID,
		"status":         string(tx.Status),
		"amount":         tx.Amount.String(),
		"payment_method": string(tx.Method),
	}
	if tx.Metadata.ProviderTransactionID != "" {
		data["provider_transaction_id"] = tx.Metadata.ProviderTransactionID
	}
	if tx.Metadata.PaymentURL != "" {
		data["payment_url"] = tx.Metadata.PaymentURL
	}
	if tx.PaidAt != nil {
		data["paid_at"] = tx.PaidAt.UTC().Format(time.RFC3339)
	}
	return data
}

func chargeReference(kind string, id uuid.UUID) string {
	return kind + ":" + id.String()
}

// parseChargeReference splits a reference written by chargeReference.
func parseChargeReference(ref string) (string, uuid.UUID, bool) {
	kind, raw, found := strings.Cut(ref, ":")
	if !found {
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, false
	}
	return kind, id, true
}
