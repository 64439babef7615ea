package services

import (
	"context"
	"errors"
	"time"

	"paycore/internal/metrics"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileReport counts what one reconciliation pass changed for a tenant.
type ReconcileReport struct {
	TenantID             uuid.UUID `json:"tenant_id"`
	PlansAdopted         int       `json:"plans_adopted"`
	SubscriptionsAdopted int       `json:"subscriptions_adopted"`
	SubscriptionsUpdated int       `json:"subscriptions_updated"`
	TransactionsAdopted  int       `json:"transactions_adopted"`
	TransactionsUpdated  int       `json:"transactions_updated"`
	InvoicesAdopted      int       `json:"invoices_adopted"`
	InvoicesPaid         int       `json:"invoices_paid"`
	InvoicesVoided       int       `json:"invoices_voided"`
	Errors               int       `json:"errors"`
}

// ReconciliationService adopts gateway objects that have no local mirror and
// catches up statuses that changed without a callback.
type ReconciliationService interface {
	ReconcileTenant(ctx context.Context, tenantID uuid.UUID) (*ReconcileReport, error)
}

type reconciliationService struct {
	gateway       GatewayClient
	plans         repositories.PlanRepository
	subscriptions repositories.SubscriptionRepository
	transactions  repositories.TransactionRepository
	invoices      repositories.InvoiceRepository
	payments      TransactionService
	subSvc        SubscriptionService
	invoiceSvc    InvoiceService
	notifier      WebhookNotifier
	logger        *zap.Logger
	now           func() time.Time
}

type ReconciliationDeps struct {
	Gateway             GatewayClient
	Plans               repositories.PlanRepository
	Subscriptions       repositories.SubscriptionRepository
	Transactions        repositories.TransactionRepository
	Invoices            repositories.InvoiceRepository
	Payments            TransactionService
	SubscriptionService SubscriptionService
	InvoiceService      InvoiceService
	Notifier            WebhookNotifier
}

func NewReconciliationService(deps ReconciliationDeps, logger *zap.Logger) ReconciliationService {
	return &reconciliationService{
		gateway:       deps.Gateway,
		plans:         deps.Plans,
		subscriptions: deps.Subscriptions,
		transactions:  deps.Transactions,
		invoices:      deps.Invoices,
		payments:      deps.Payments,
		subSvc:        deps.SubscriptionService,
		invoiceSvc:    deps.InvoiceService,
		notifier:      deps.Notifier,
		logger:        logger.Named("reconcile"),
		now:           time.Now,
	}
}

func (s *reconciliationService) ReconcileTenant(ctx context.Context, tenantID uuid.UUID) (*ReconcileReport, error) {
	session, err := s.gateway.Open(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{TenantID: tenantID}
	log := s.logger.With(zap.String("tenant_id", tenantID.String()))

	// Plans first: adopted subscriptions need their local plan.
	if err := s.reconcilePlans(ctx, session, report, log); err != nil {
		return report, err
	}
	if err := s.reconcileSubscriptions(ctx, session, report, log); err != nil {
		return report, err
	}
	if err := s.reconcileCharges(ctx, session, report, log); err != nil {
		return report, err
	}

	log.Info("reconciliation finished",
		zap.Int("plans_adopted", report.PlansAdopted),
		zap.Int("subscriptions_adopted", report.SubscriptionsAdopted),
		zap.Int("subscriptions_updated", report.SubscriptionsUpdated),
		zap.Int("transactions_adopted", report.TransactionsAdopted),
		zap.Int("transactions_updated", report.TransactionsUpdated),
		zap.Int("invoices_adopted", report.InvoicesAdopted),
		zap.Int("invoices_paid", report.InvoicesPaid),
		zap.Int("errors", report.Errors))
	return report, nil
}

func (s *reconciliationService) reconcilePlans(ctx context.Context, session *GatewaySession, report *ReconcileReport, log *zap.Logger) error {
	remotes, err := s.gateway.ListPlans(ctx, session)
	if err != nil {
		return err
	}
	for _, rp := range remotes {
		_, err := s.plans.GetByProviderID(ctx, session.TenantID, rp.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			report.Errors++
			log.Warn("plan lookup failed", zap.String("provider_plan_id", rp.ID), zap.Error(err))
			continue
		}

		providerID := rp.ID
		plan := &models.Plan{
			ID:             uuid.New(),
			TenantID:       session.TenantID,
			Name:           rp.Name,
			Description:    rp.Description,
			Price:          rp.Amount,
			Interval:       models.BillingInterval(rp.Interval),
			IntervalCount:  rp.IntervalCount,
			Status:         models.PlanStatusActive,
			ProviderPlanID: &providerID,
		}
		if !plan.Interval.Valid() {
			plan.Interval = models.IntervalMonth
		}
		if plan.IntervalCount <= 0 {
			plan.IntervalCount = 1
		}
		switch models.PlanStatus(rp.Status) {
		case models.PlanStatusInactive, models.PlanStatusArchived:
			plan.Status = models.PlanStatus(rp.Status)
		}
		if err := s.plans.Create(ctx, plan); err != nil {
			report.Errors++
			log.Warn("failed to adopt plan", zap.String("provider_plan_id", rp.ID), zap.Error(err))
			continue
		}
		report.PlansAdopted++
		metrics.ReconcileAdopted.WithLabelValues("plan").Inc()
	}
	return nil
}

func (s *reconciliationService) reconcileSubscriptions(ctx context.Context, session *GatewaySession, report *ReconcileReport, log *zap.Logger) error {
	remotes, err := s.gateway.ListSubscriptions(ctx, session)
	if err != nil {
		return err
	}
	for _, rs := range remotes {
		local, err := s.subscriptions.GetByProviderID(ctx, session.TenantID, rs.ID)
		switch {
		case err == nil:
			changed, err := s.subSvc.SyncStatus(ctx, local, rs)
			if err != nil {
				report.Errors++
				log.Warn("failed to sync subscription", zap.String("provider_subscription_id", rs.ID), zap.Error(err))
			} else if changed {
				report.SubscriptionsUpdated++
			}
			continue
		case !errors.Is(err, repositories.ErrNotFound):
			report.Errors++
			log.Warn("subscription lookup failed", zap.String("provider_subscription_id", rs.ID), zap.Error(err))
			continue
		}

		plan, err := s.plans.GetByProviderID(ctx, session.TenantID, rs.PlanID)
		if err != nil {
			report.Errors++
			log.Warn("cannot adopt subscription without local plan",
				zap.String("provider_subscription_id", rs.ID),
				zap.String("provider_plan_id", rs.PlanID),
				zap.Error(err))
			continue
		}

		providerID := rs.ID
		sub := &models.Subscription{
			ID:                     uuid.New(),
			TenantID:               session.TenantID,
			CustomerID:             rs.CustomerID,
			PlanID:                 plan.ID,
			Status:                 MapSubscriptionStatus(rs.Status),
			StartDate:              rs.StartDate.UTC(),
			EndDate:                rs.EndDate,
			CancelAtPeriodEnd:      rs.CancelAtPeriodEnd,
			ProviderSubscriptionID: &providerID,
		}
		if sub.StartDate.IsZero() {
			sub.StartDate = s.now().UTC()
		}
		if err := s.subscriptions.Create(ctx, sub); err != nil {
			report.Errors++
			log.Warn("failed to adopt subscription", zap.String("provider_subscription_id", rs.ID), zap.Error(err))
			continue
		}
		report.SubscriptionsAdopted++
		metrics.ReconcileAdopted.WithLabelValues("subscription").Inc()
	}
	return nil
}

func (s *reconciliationService) reconcileCharges(ctx context.Context, session *GatewaySession, report *ReconcileReport, log *zap.Logger) error {
	charges, err := s.gateway.ListCharges(ctx, session)
	if err != nil {
		return err
	}
	for i := range charges {
		charge := &charges[i]
		kind, localID, _ := parseChargeReference(charge.Reference)

		var err error
		if kind == referenceInvoice {
			err = s.reconcileInvoiceCharge(ctx, session.TenantID, localID, charge, report)
		} else {
			err = s.reconcileTransactionCharge(ctx, session.TenantID, kind, localID, charge, report)
		}
		if err != nil {
			report.Errors++
			log.Warn("failed to reconcile charge", zap.String("provider_charge_id", charge.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *reconciliationService) reconcileTransactionCharge(ctx context.Context, tenantID uuid.UUID, kind string, localID uuid.UUID, charge *ChargeResponse, report *ReconcileReport) error {
	patch := models.ProviderMetadata{
		Provider:              ProviderGateway,
		ProviderTransactionID: charge.ID,
		PaymentURL:            charge.PaymentURL,
	}

	tx, err := s.transactions.FindByProviderTransactionID(ctx, charge.ID)
	if errors.Is(err, repositories.ErrNotFound) && kind == referenceTransaction {
		// The row exists but the charge id was never written back to it.
		tx, err = s.transactions.GetByID(ctx, tenantID, localID)
	}
	switch {
	case err == nil:
		if tx.TenantID != tenantID {
			return nil
		}
		if tx.Metadata.ProviderTransactionID == charge.ID && tx.Metadata.PaymentURL == charge.PaymentURL {
			patch = models.ProviderMetadata{}
		}
		updated, changed, err := s.payments.ApplyStatus(ctx, tx, MapStatus(charge.Status), patch, "reconcile")
		if err != nil {
			return err
		}
		if changed {
			report.TransactionsUpdated++
			s.notifier.SendWebhookNotification(ctx, tenantID, EventPaymentUpdated, paymentEventData(updated))
		}
		return nil
	case !errors.Is(err, repositories.ErrNotFound):
		return err
	}

	tx = &models.Transaction{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CustomerID:  charge.CustomerID,
		Amount:      charge.Amount,
		Method:      models.PaymentMethod(charge.PaymentMethod),
		Status:      MapStatus(charge.Status),
		Description: charge.Description,
		Metadata:    patch,
	}
	if kind == referenceTransaction {
		tx.ID = localID
	}
	if !tx.Method.Valid() {
		tx.Method = models.PaymentMethodCreditCard
	}
	tx.Metadata.Raw = models.JSONB{"adopted": true}
	if tx.Status == models.TransactionStatusApproved {
		paidAt := s.now().UTC()
		tx.PaidAt = &paidAt
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return err
	}
	report.TransactionsAdopted++
	metrics.ReconcileAdopted.WithLabelValues("transaction").Inc()
	return nil
}

func (s *reconciliationService) reconcileInvoiceCharge(ctx context.Context, tenantID, invoiceID uuid.UUID, charge *ChargeResponse, report *ReconcileReport) error {
	invoice, err := s.invoices.GetByProviderID(ctx, tenantID, charge.ID)
	switch {
	case err == nil:
		updated, changed, err := s.invoiceSvc.ApplyChargeStatus(ctx, invoice, charge.Status, models.ProviderMetadata{})
		if err != nil {
			return err
		}
		if changed {
			switch updated.Status {
			case models.InvoiceStatusPaid:
				report.InvoicesPaid++
			case models.InvoiceStatusVoid:
				report.InvoicesVoided++
			}
		}
		return nil
	case !errors.Is(err, repositories.ErrNotFound):
		return err
	}

	status := MapInvoiceStatus(charge.Status)
	invoice = &models.Invoice{
		ID:                invoiceID,
		TenantID:          tenantID,
		CustomerID:        charge.CustomerID,
		Amount:            charge.Amount,
		Status:            status,
		DueDate:           s.now().UTC().Add(defaultInvoiceTerm),
		ProviderInvoiceID: charge.ID,
		PaymentURL:        charge.PaymentURL,
		Items: models.InvoiceItems{
			{Description: charge.Description, Amount: charge.Amount, Quantity: 1},
		},
		Metadata: models.ProviderMetadata{
			Provider:              ProviderGateway,
			ProviderTransactionID: charge.ID,
			PaymentURL:            charge.PaymentURL,
			Raw:                   models.JSONB{"adopted": true},
		},
	}
	if status == models.InvoiceStatusPaid {
		paidAt := s.now().UTC()
		invoice.PaidAt = &paidAt
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return err
	}
	report.InvoicesAdopted++
	metrics.ReconcileAdopted.WithLabelValues("invoice").Inc()
	return nil
}
