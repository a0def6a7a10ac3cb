package payment

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the provider independent meaning of a notification.
type EventType string

const (
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventPaymentFailed         EventType = "payment_failed"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventCheckoutCompleted     EventType = "checkout_completed"
	EventIgnored               EventType = "ignored"
)

// Metadata keys attached to takeover checkouts and the subscriptions they create.
const (
	MetaAccountID         = "account_id"
	MetaSecondaryID       = "secondary_id"
	MetaTakeoverType      = "takeover_type"
	MetaPreviousPrimaryID = "previous_primary_id"
)

// Event is a verified, normalised provider notification.
type Event struct {
	ID                string    `json:"id"`
	Type              EventType `json:"type"`
	ProviderType      string    `json:"provider_type"`
	AccountID         uuid.UUID `json:"account_id"`
	CustomerID        string    `json:"customer_id,omitempty"`
	SubscriptionID    string    `json:"subscription_id,omitempty"`
	PaymentID         string    `json:"payment_id,omitempty"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	// Recurring marks payments that belong to a subscription invoice, the
	// only payments that earn photographer commission.
	Recurring bool `json:"recurring"`
	// Paid is set on checkout completions whose payment has cleared.
	// Asynchronous methods complete the checkout before the money arrives.
	Paid     bool              `json:"paid"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsTakeover reports whether the event carries takeover correlation metadata.
func (e *Event) IsTakeover() bool {
	return e.Metadata[MetaTakeoverType] != "" && e.Metadata[MetaSecondaryID] != ""
}

// ConfirmsPayment reports whether the event proves money was collected.
func (e *Event) ConfirmsPayment() bool {
	switch e.Type {
	case EventPaymentSucceeded:
		return true
	case EventCheckoutCompleted:
		return e.Paid
	}
	return false
}

// applyMetadata copies known metadata into the typed fields.
func (e *Event) applyMetadata(md map[string]string) {
	if len(md) == 0 {
		return
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, len(md))
	}
	for k, v := range md {
		e.Metadata[k] = v
	}
	if e.AccountID == uuid.Nil {
		if id, err := uuid.Parse(md[MetaAccountID]); err == nil {
			e.AccountID = id
		}
	}
}
