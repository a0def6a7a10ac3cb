// Package payment abstracts the billing provider: customers, hosted
// checkouts, subscription cancellation, webhook verification and Connect
// transfers. Provider events are normalised into Event so the rest of the
// system never sees provider payloads.
package payment

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Provider is implemented by every billing backend.
type Provider interface {
	Name() string
	// EnsureCustomer returns req.ExistingID when set, otherwise creates a
	// customer keyed by req.UserID so repeated calls converge on one record.
	EnsureCustomer(ctx context.Context, req CustomerRequest) (string, error)
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)
	// CancelSubscription stops billing immediately. Cancelling an already
	// cancelled subscription is not an error.
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// ParseWebhook verifies the signature carried in header and normalises
	// the payload. Verification failures wrap ErrInvalidSignature.
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*Event, error)
}

// Transferer moves money to a photographer's connected account.
type Transferer interface {
	Transfer(ctx context.Context, req TransferRequest) (transferID string, err error)
}

type CustomerRequest struct {
	UserID     uuid.UUID
	Email      string
	Name       string
	ExistingID string
}

type CheckoutRequest struct {
	CustomerID     string
	PriceID        string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

type CheckoutLink struct {
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TransferRequest struct {
	AmountCents    int64
	Currency       string
	Destination    string
	IdempotencyKey string
	Group          string
	Metadata       map[string]string
}
