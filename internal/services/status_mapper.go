package services

import (
	"strings"

	"paycore/internal/models"
)

// MapStatus translates a provider status into the canonical transaction
// status. Unknown and empty values map to pending.
func MapStatus(providerStatus string) models.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "completed", "approved":
		return models.TransactionStatusApproved
	case "failed", "rejected":
		return models.TransactionStatusRejected
	case "canceled", "cancelled":
		return models.TransactionStatusCancelled
	case "processing":
		return models.TransactionStatusProcessing
	default:
		return models.TransactionStatusPending
	}
}

// MapSubscriptionStatus normalizes the gateway's subscription vocabulary.
func MapSubscriptionStatus(providerStatus string) models.SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "active":
		return models.SubscriptionStatusActive
	case "canceled", "cancelled":
		return models.SubscriptionStatusCanceled
	case "past_due", "overdue":
		return models.SubscriptionStatusPastDue
	case "trialing", "trial":
		return models.SubscriptionStatusTrialing
	case "unpaid":
		return models.SubscriptionStatusUnpaid
	default:
		return models.SubscriptionStatusPending
	}
}

// MapInvoiceStatus derives an invoice status from its charge status.
func MapInvoiceStatus(chargeStatus string) models.InvoiceStatus {
	switch MapStatus(chargeStatus) {
	case models.TransactionStatusApproved:
		return models.InvoiceStatusPaid
	case models.TransactionStatusCancelled:
		return models.InvoiceStatusVoid
	default:
		return models.InvoiceStatusOpen
	}
}
