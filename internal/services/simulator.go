package services

import (
	"context"
	"strings"
	"time"

	"paycore/internal/metrics"

	"github.com/google/uuid"
)

const simulatedIDPrefix = "sim_"

// PaymentSimulator stands in for the gateway when a tenant has no usable
// credentials. It never moves a charge past pending.
type PaymentSimulator struct {
	delay          time.Duration
	paymentBaseURL string
}

func NewPaymentSimulator(delay time.Duration, paymentBaseURL string) *PaymentSimulator {
	return &PaymentSimulator{
		delay:          delay,
		paymentBaseURL: strings.TrimRight(paymentBaseURL, "/"),
	}
}

// CreateCharge waits the configured delay and returns a synthetic pending charge.
func (p *PaymentSimulator) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	id := simulatedIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	metrics.SimulatedPayments.Inc()
	return &ChargeResponse{
		ID:            id,
		Status:        "pending",
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentURL:    p.paymentBaseURL + "/" + id,
		CustomerID:    req.CustomerID,
		Description:   req.Description,
		Reference:     req.Reference,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// IsSimulatedID reports whether a provider id was issued by the simulator.
func IsSimulatedID(providerID string) bool {
	return strings.HasPrefix(providerID, simulatedIDPrefix)
}
