package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"paycore/internal/models"
	"paycore/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockGatewayConfigRepository struct {
	mock.Mock
}

func (m *MockGatewayConfigRepository) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.GatewayConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GatewayConfig), args.Error(1)
}

func (m *MockGatewayConfigRepository) ListActive(ctx context.Context) ([]*models.GatewayConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GatewayConfig), args.Error(1)
}

type countingReconciler struct {
	failFor  uuid.UUID
	inFlight int32
	maxSeen  int32
}

func (r *countingReconciler) ReconcileTenant(ctx context.Context, tenantID uuid.UUID) (*services.ReconcileReport, error) {
	n := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&r.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&r.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if tenantID == r.failFor {
		return nil, &services.ConfigurationError{TenantID: tenantID, Reason: "gone"}
	}
	return &services.ReconcileReport{TenantID: tenantID}, nil
}

func TestReconcileAll_BoundedAndIsolated(t *testing.T) {
	configs := new(MockGatewayConfigRepository)
	var active []*models.GatewayConfig
	for i := 0; i < 6; i++ {
		active = append(active, &models.GatewayConfig{TenantID: uuid.New(), Active: true})
	}
	configs.On("ListActive", mock.Anything).Return(active, nil)

	reconciler := &countingReconciler{failFor: active[2].TenantID}
	js, err := NewJobScheduler(configs, reconciler, 2, zap.NewNop())
	require.NoError(t, err)

	reports, err := js.ReconcileAll(context.Background())

	require.NoError(t, err)
	assert.Len(t, reports, 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&reconciler.maxSeen), int32(2))
}

func TestReconcileAll_ListFailure(t *testing.T) {
	configs := new(MockGatewayConfigRepository)
	configs.On("ListActive", mock.Anything).Return(nil, errors.New("db down"))

	js, err := NewJobScheduler(configs, &countingReconciler{}, 1, zap.NewNop())
	require.NoError(t, err)

	_, err = js.ReconcileAll(context.Background())

	assert.Error(t, err)
}

func TestRegisterReconciliation(t *testing.T) {
	js, err := NewJobScheduler(new(MockGatewayConfigRepository), &countingReconciler{}, 1, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, js.RegisterReconciliation(0))
	assert.Equal(t, 0, js.GetJobStatus()["total_jobs"])

	require.NoError(t, js.RegisterReconciliation(time.Hour))
	assert.Equal(t, 1, js.GetJobStatus()["total_jobs"])
}
