package background

import (
	"context"
	"sync"
	"time"

	"paycore/internal/repositories"
	"paycore/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reconcileJobName = "gateway-reconciliation"

// JobScheduler runs the periodic gateway reconciliation for every tenant
// with an active gateway configuration.
type JobScheduler struct {
	scheduler   gocron.Scheduler
	configs     repositories.GatewayConfigRepository
	reconciler  services.ReconciliationService
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
	jobs        map[string]gocron.Job
	mu          sync.RWMutex
}

// NewJobScheduler creates a new job scheduler. Jobs start with Start.
func NewJobScheduler(
	configs repositories.GatewayConfigRepository,
	reconciler services.ReconciliationService,
	concurrency int,
	logger *zap.Logger,
) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	return &JobScheduler{
		scheduler:   scheduler,
		configs:     configs,
		reconciler:  reconciler,
		concurrency: concurrency,
		timeout:     5 * time.Minute,
		logger:      logger.Named("scheduler"),
		jobs:        make(map[string]gocron.Job),
	}, nil
}

// RegisterReconciliation schedules the reconciliation job. A zero interval
// disables it.
func (js *JobScheduler) RegisterReconciliation(interval time.Duration) error {
	if interval <= 0 {
		js.logger.Info("reconciliation job disabled")
		return nil
	}

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.reconcileAll),
		gocron.WithName(reconcileJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.mu.Lock()
	js.jobs[reconcileJobName] = job
	js.mu.Unlock()

	js.logger.Info("registered background job", zap.String("job", reconcileJobName), zap.Duration("interval", interval))
	return nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler and waits for running jobs.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		jobs = append(jobs, name)
	}

	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       jobs,
	}
}

func (js *JobScheduler) reconcileAll() {
	ctx, cancel := context.WithTimeout(context.Background(), js.timeout)
	defer cancel()

	if _, err := js.ReconcileAll(ctx); err != nil {
		js.logger.Error("reconciliation run failed", zap.Error(err))
	}
}

// ReconcileAll reconciles every active tenant, at most concurrency at a
// time. A failing tenant does not stop the others.
func (js *JobScheduler) ReconcileAll(ctx context.Context) ([]*services.ReconcileReport, error) {
	configs, err := js.configs.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	semaphore := make(chan struct{}, js.concurrency)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports []*services.ReconcileReport
	)

	for _, cfg := range configs {
		wg.Add(1)
		go func(tenantID uuid.UUID) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			report, err := js.reconciler.ReconcileTenant(ctx, tenantID)
			if err != nil {
				js.logger.Warn("tenant reconciliation failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
				return
			}

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
		}(cfg.TenantID)
	}

	wg.Wait()
	js.logger.Info("completed reconciliation run", zap.Int("tenants", len(configs)), zap.Int("succeeded", len(reports)))
	return reports, nil
}
