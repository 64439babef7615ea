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

type SubscriptionInput struct {
	CustomerID string     `json:"customer_id"`
	PlanID     uuid.UUID  `json:"plan_id"`
	StartDate  *time.Time `json:"start_date,omitempty"`
}

// SubscriptionService handles subscription-related business logic
type SubscriptionService interface {
	Create(ctx context.Context, tenantID uuid.UUID, input SubscriptionInput) (*models.Subscription, error)
	GetByID(ctx context.Context, tenantID, subscriptionID uuid.UUID) (*models.Subscription, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Subscription, error)
	// Cancel ends the subscription now, or flags it to end with the current
	// period when atPeriodEnd is set.
	Cancel(ctx context.Context, tenantID, subscriptionID uuid.UUID, atPeriodEnd bool) (*models.Subscription, error)
	// SyncStatus brings a local mirror in line with the gateway's view.
	SyncStatus(ctx context.Context, sub *models.Subscription, remote SubscriptionResponse) (bool, error)
}

type subscriptionService struct {
	repo     repositories.SubscriptionRepository
	plans    repositories.PlanRepository
	gateway  GatewayClient
	notifier WebhookNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSubscriptionService(
	repo repositories.SubscriptionRepository,
	plans repositories.PlanRepository,
	gateway GatewayClient,
	notifier WebhookNotifier,
	logger *zap.Logger,
) SubscriptionService {
	return &subscriptionService{
		repo:     repo,
		plans:    plans,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger.Named("subscriptions"),
		now:      time.Now,
	}
}

func (s *subscriptionService) Create(ctx context.Context, tenantID uuid.UUID, input SubscriptionInput) (*models.Subscription, error) {
	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" {
		return nil, &ValidationError{Field: "customer_id", Message: "is required"}
	}
	if input.PlanID == uuid.Nil {
		return nil, &ValidationError{Field: "plan_id", Message: "is required"}
	}

	plan, err := s.plans.GetByID(ctx, tenantID, input.PlanID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ValidationError{Field: "plan_id", Message: "does not exist"}
		}
		return nil, &StorageError{Operation: "get plan", Err: err}
	}
	if plan.Status != models.PlanStatusActive {
		return nil, &ValidationError{Field: "plan_id", Message: "plan is not active"}
	}
	if plan.ProviderPlanID == nil || *plan.ProviderPlanID == "" {
		return nil, &ValidationError{Field: "plan_id", Message: "plan is not registered with the gateway"}
	}

	session, err := s.gateway.Open(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	remote, err := s.gateway.CreateSubscription(ctx, session, CreateSubscriptionRequest{
		PlanID:     *plan.ProviderPlanID,
		CustomerID: customerID,
		StartDate:  input.StartDate,
	})
	if err != nil {
		return nil, err
	}

	providerID := remote.ID
	sub := &models.Subscription{
		ID:                     uuid.New(),
		TenantID:               tenantID,
		CustomerID:             customerID,
		PlanID:                 plan.ID,
		Status:                 MapSubscriptionStatus(remote.Status),
		StartDate:              s.startDate(remote, input),
		EndDate:                remote.EndDate,
		CancelAtPeriodEnd:      remote.CancelAtPeriodEnd,
		ProviderSubscriptionID: &providerID,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		metrics.MirrorFailures.WithLabelValues("subscription").Inc()
		s.logger.Error("subscription created at gateway but not stored",
			zap.String("tenant_id", tenantID.String()),
			zap.String("provider_subscription_id", providerID),
			zap.Error(err))
		return nil, &MirrorError{Kind: "subscription", ProviderID: providerID, Err: err}
	}

	s.notifier.SendWebhookNotification(ctx, tenantID, EventSubscriptionCreated, subscriptionEventData(sub))
	return sub, nil
}

func (s *subscriptionService) startDate(remote *SubscriptionResponse, input SubscriptionInput) time.Time {
	switch {
	case !remote.StartDate.IsZero():
		return remote.StartDate.UTC()
	case input.StartDate != nil:
		return input.StartDate.UTC()
	default:
		return s.now().UTC()
	}
}

func (s *subscriptionService) GetByID(ctx context.Context, tenantID, subscriptionID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, tenantID, subscriptionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "subscription", ID: subscriptionID.String()}
		}
		return nil, &StorageError{Operation: "get subscription", Err: err}
	}
	return sub, nil
}

func (s *subscriptionService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Subscription, error) {
	subs, err := s.repo.List(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, &StorageError{Operation: "list subscriptions", Err: err}
	}
	return subs, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, tenantID, subscriptionID uuid.UUID, atPeriodEnd bool) (*models.Subscription, error) {
	sub, err := s.GetByID(ctx, tenantID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.IsTerminal() || (atPeriodEnd && sub.CancelAtPeriodEnd) {
		return sub, nil
	}

	var remote *SubscriptionResponse
	if sub.ProviderSubscriptionID != nil && *sub.ProviderSubscriptionID != "" {
		session, err := s.gateway.Open(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		remote, err = s.gateway.CancelSubscription(ctx, session, *sub.ProviderSubscriptionID, CancelSubscriptionRequest{AtPeriodEnd: atPeriodEnd})
		if err != nil {
			return nil, err
		}
	}

	updated := *sub
	if atPeriodEnd {
		updated.CancelAtPeriodEnd = true
		if remote != nil && remote.EndDate != nil {
			updated.EndDate = remote.EndDate
		}
	} else {
		now := s.now().UTC()
		updated.Status = models.SubscriptionStatusCanceled
		updated.EndDate = &now
	}

	ok, err := s.repo.UpdateStatus(ctx, &updated, sub.Status)
	if err != nil {
		s.logger.Error("subscription canceled at gateway but not stored",
			zap.String("tenant_id", tenantID.String()),
			zap.String("subscription_id", sub.ID.String()),
			zap.Error(err))
		return nil, &StorageError{Operation: "cancel subscription", Err: err}
	}
	if !ok {
		return s.GetByID(ctx, tenantID, subscriptionID)
	}

	s.notifier.SendWebhookNotification(ctx, tenantID, EventSubscriptionCanceled, subscriptionEventData(&updated))
	return &updated, nil
}

func (s *subscriptionService) SyncStatus(ctx context.Context, sub *models.Subscription, remote SubscriptionResponse) (bool, error) {
	next := MapSubscriptionStatus(remote.Status)
	if sub.Status.IsTerminal() || (next == sub.Status && remote.CancelAtPeriodEnd == sub.CancelAtPeriodEnd) {
		return false, nil
	}

	updated := *sub
	updated.Status = next
	updated.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	if remote.EndDate != nil {
		updated.EndDate = remote.EndDate
	}
	ok, err := s.repo.UpdateStatus(ctx, &updated, sub.Status)
	if err != nil {
		return false, &StorageError{Operation: "sync subscription", Err: err}
	}
	if ok && next == models.SubscriptionStatusCanceled {
		s.notifier.SendWebhookNotification(ctx, sub.TenantID, EventSubscriptionCanceled, subscriptionEventData(&updated))
	}
	return ok, nil
}

func subscriptionEventData(sub *models.Subscription) map[string]interface{} {
	data := map[string]interface{}{
		"subscription_id":      sub.ID.String(),
		"customer_id":          sub.CustomerID,
		"plan_id":              sub.PlanID.String(),
		"status":               string(sub.Status),
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
	}
	if sub.ProviderSubscriptionID != nil {
		data["provider_subscription_id"] = *sub.ProviderSubscriptionID
	}
	if sub.EndDate != nil {
		data["end_date"] = sub.EndDate.UTC().Format(time.RFC3339)
	}
	return data
}
