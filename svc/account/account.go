// Package account tracks a client account through the active, grace_period
// and suspended lifecycle driven by billing notifications.
package account

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusGracePeriod Status = "grace_period"
	StatusSuspended   Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusGracePeriod, StatusSuspended:
		return true
	}
	return false
}

// GraceCause records what moved the account into grace.
type GraceCause string

const (
	GraceNone            GraceCause = ""
	GracePaymentFailed   GraceCause = "payment_failed"
	GraceCancelScheduled GraceCause = "cancel_scheduled"
	// GraceSubscriptionEnded is set once the provider has ended the
	// subscription; only a new successful payment leaves it.
	GraceSubscriptionEnded GraceCause = "subscription_ended"
)

// Account is a client account. Rows are never deleted.
type Account struct {
	ID                     uuid.UUID  `json:"id"`
	UserID                 uuid.UUID  `json:"user_id"`
	PhotographerID         *uuid.UUID `json:"photographer_id,omitempty"`
	Status                 Status     `json:"status"`
	LastPaymentFailureAt   *time.Time `json:"last_payment_failure_at,omitempty"`
	GraceCause             GraceCause `json:"grace_cause,omitempty"`
	LastPaymentAt          *time.Time `json:"last_payment_at,omitempty"`
	CancelAtPeriodEnd      bool       `json:"cancel_at_period_end"`
	ProviderCustomerID     string     `json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string     `json:"provider_subscription_id,omitempty"`
	Version                int64      `json:"version"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// IsDelinquent reports whether the account is behind on payment.
func (a Account) IsDelinquent() bool {
	return a.Status == StatusGracePeriod || a.Status == StatusSuspended
}

// Transition describes the effect of one trigger on an account.
type Transition struct {
	AccountID uuid.UUID `json:"account_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
}

func (t Transition) Changed() bool { return t.From != t.To }
