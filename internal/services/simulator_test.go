package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSimulator_CreateCharge(t *testing.T) {
	sim := NewPaymentSimulator(0, "https://pay.example.test/")
	req := ChargeRequest{
		Amount:        decimal.RequireFromString("42.50"),
		PaymentMethod: "pix",
		CustomerID:    "cust-1",
		Reference:     "txn:abc",
	}

	charge, err := sim.CreateCharge(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, IsSimulatedID(charge.ID))
	assert.Equal(t, "pending", charge.Status)
	assert.Equal(t, "https://pay.example.test/"+charge.ID, charge.PaymentURL)
	assert.True(t, req.Amount.Equal(charge.Amount))
	assert.Equal(t, "txn:abc", charge.Reference)
	assert.False(t, strings.Contains(charge.ID, "-"))

	other, err := sim.CreateCharge(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, charge.ID, other.ID)
}

func TestPaymentSimulator_HonoursCancellation(t *testing.T) {
	sim := NewPaymentSimulator(time.Minute, "https://pay.example.test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	charge, err := sim.CreateCharge(ctx, ChargeRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, charge)
}

func TestIsSimulatedID(t *testing.T) {
	assert.True(t, IsSimulatedID("sim_123"))
	assert.False(t, IsSimulatedID("ch_123"))
	assert.False(t, IsSimulatedID(""))
}
