package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"paycore/internal/metrics"
	"paycore/internal/models"
	"paycore/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PlanInput struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Price         decimal.Decimal        `json:"price"`
	Interval      models.BillingInterval `json:"interval"`
	IntervalCount int                    `json:"interval_count"`
	Features      []string               `json:"features"`
}

// PlanService creates billing plans at the gateway and mirrors them locally.
type PlanService interface {
	Create(ctx context.Context, tenantID uuid.UUID, input PlanInput) (*models.Plan, error)
	GetByID(ctx context.Context, tenantID, planID uuid.UUID) (*models.Plan, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Plan, error)
	Deactivate(ctx context.Context, tenantID, planID uuid.UUID) (*models.Plan, error)
}

type planService struct {
	repo    repositories.PlanRepository
	gateway GatewayClient
	logger  *zap.Logger

	mu       sync.Mutex
	baseURLs map[uuid.UUID]string
}

func NewPlanService(repo repositories.PlanRepository, gateway GatewayClient, logger *zap.Logger) PlanService {
	return &planService{
		repo:     repo,
		gateway:  gateway,
		logger:   logger.Named("plans"),
		baseURLs: make(map[uuid.UUID]string),
	}
}

func validatePlan(input PlanInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if !input.Price.IsPositive() {
		return &ValidationError{Field: "price", Message: "must be greater than zero"}
	}
	if !input.Interval.Valid() {
		return &ValidationError{Field: "interval", Message: "must be one of day, week, month, year"}
	}
	if input.IntervalCount < 0 {
		return &ValidationError{Field: "interval_count", Message: "must not be negative"}
	}
	return nil
}

// session resolves the tenant base URL once per service instance; only the
// token is fetched per call.
func (s *planService) session(ctx context.Context, tenantID uuid.UUID) (*GatewaySession, error) {
	s.mu.Lock()
	base, ok := s.baseURLs[tenantID]
	s.mu.Unlock()

	if !ok {
		resolved, err := s.gateway.ResolveBaseURL(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.baseURLs[tenantID] = resolved
		s.mu.Unlock()
		base = resolved
	}
	return s.gateway.NewSession(ctx, tenantID, base)
}

func (s *planService) Create(ctx context.Context, tenantID uuid.UUID, input PlanInput) (*models.Plan, error) {
	if err := validatePlan(input); err != nil {
		return nil, err
	}
	if input.IntervalCount == 0 {
		input.IntervalCount = 1
	}

	session, err := s.session(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	remote, err := s.gateway.CreatePlan(ctx, session, CreatePlanRequest{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Amount:        input.Price,
		Interval:      string(input.Interval),
		IntervalCount: input.IntervalCount,
	})
	if err != nil {
		return nil, err
	}

	providerID := remote.ID
	plan := &models.Plan{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Price:          input.Price,
		Interval:       input.Interval,
		IntervalCount:  input.IntervalCount,
		Status:         models.PlanStatusActive,
		ProviderPlanID: &providerID,
		Features:       input.Features,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		metrics.MirrorFailures.WithLabelValues("plan").Inc()
		s.logger.Error("plan created at gateway but not stored",
			zap.String("tenant_id", tenantID.String()),
			zap.String("provider_plan_id", providerID),
			zap.Error(err))
		return nil, &MirrorError{Kind: "plan", ProviderID: providerID, Err: err}
	}
	return plan, nil
}

func (s *planService) GetByID(ctx context.Context, tenantID, planID uuid.UUID) (*models.Plan, error) {
	plan, err := s.repo.GetByID(ctx, tenantID, planID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "plan", ID: planID.String()}
		}
		return nil, &StorageError{Operation: "get plan", Err: err}
	}
	return plan, nil
}

func (s *planService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Plan, error) {
	plans, err := s.repo.List(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, &StorageError{Operation: "list plans", Err: err}
	}
	return plans, nil
}

// Deactivate stops a plan from being used for new subscriptions. The gateway
// keeps the remote plan.
func (s *planService) Deactivate(ctx context.Context, tenantID, planID uuid.UUID) (*models.Plan, error) {
	plan, err := s.GetByID(ctx, tenantID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanStatusInactive {
		return plan, nil
	}
	plan.Status = models.PlanStatusInactive
	if err := s.repo.Update(ctx, plan); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &NotFoundError{Resource: "plan", ID: planID.String()}
		}
		return nil, &StorageError{Operation: "update plan", Err: err}
	}
	return plan, nil
}
