package models

// TransactionStatus is the canonical, provider-independent payment state.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusApproved   TransactionStatus = "approved"
	TransactionStatusRejected   TransactionStatus = "rejected"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusApproved, TransactionStatusRejected, TransactionStatusCancelled:
		return true
	}
	return false
}

func (s TransactionStatus) rank() int {
	switch s {
	case TransactionStatusPending:
		return 0
	case TransactionStatusProcessing:
		return 1
	case TransactionStatusApproved, TransactionStatusRejected, TransactionStatusCancelled:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a forward move.
// Writing the same status again is not a transition.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s == next || s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// PaymentMethod enumerates the accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodBankSlip   PaymentMethod = "bank_slip"
	PaymentMethodCash       PaymentMethod = "cash"
)

// Valid reports whether m is one of the supported methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPix, PaymentMethodBankSlip, PaymentMethodCash:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCanceled
}

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

func (s InvoiceStatus) IsTerminal() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusVoid, InvoiceStatusUncollectible:
		return true
	}
	return false
}

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
	PlanStatusArchived PlanStatus = "archived"
)

// BillingInterval is the unit a plan repeats on.
type BillingInterval string

const (
	IntervalDay   BillingInterval = "day"
	IntervalWeek  BillingInterval = "week"
	IntervalMonth BillingInterval = "month"
	IntervalYear  BillingInterval = "year"
)

func (i BillingInterval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}
