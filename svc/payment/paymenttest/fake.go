// Package paymenttest provides an in-memory payment.Provider and
// payment.Transferer for tests and local runs.
package paymenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/photovault/photovault/svc/payment"
)

// SignatureHeader carries the shared secret for Fake.ParseWebhook.
const SignatureHeader = "X-Fake-Signature"

// Fake records every call. Fields ending in Err make the matching call fail.
type Fake struct {
	Secret string

	mu            sync.Mutex
	customers     map[string]string
	nextID        int
	Checkouts     []payment.CheckoutRequest
	Cancelled     []string
	Transfers     []payment.TransferRequest
	transferByKey map[string]string

	CustomerErr error
	CheckoutErr error
	CancelErr   error
	TransferErr error
}

// New returns a Fake whose webhook secret is "whsec_test".
func New() *Fake {
	return &Fake{
		Secret:        "whsec_test",
		customers:     make(map[string]string),
		transferByKey: make(map[string]string),
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) EnsureCustomer(_ context.Context, req payment.CustomerRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CustomerErr != nil {
		return "", f.CustomerErr
	}
	if req.ExistingID != "" {
		return req.ExistingID, nil
	}
	key := req.UserID.String()
	if id, ok := f.customers[key]; ok {
		return id, nil
	}
	f.nextID++
	id := fmt.Sprintf("cus_fake_%d", f.nextID)
	f.customers[key] = id
	return id, nil
}

func (f *Fake) CreateCheckoutLink(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CheckoutErr != nil {
		return nil, f.CheckoutErr
	}
	req.Metadata = maps.Clone(req.Metadata)
	f.Checkouts = append(f.Checkouts, req)
	f.nextID++
	id := fmt.Sprintf("cs_fake_%d", f.nextID)
	return &payment.CheckoutLink{
		URL:       "https://checkout.fake/" + id,
		SessionID: id,
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC(),
	}, nil
}

func (f *Fake) CancelSubscription(_ context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CancelErr != nil {
		return f.CancelErr
	}
	if subscriptionID != "" {
		f.Cancelled = append(f.Cancelled, subscriptionID)
	}
	return nil
}

// Transfer honours idempotency keys like the real provider.
func (f *Fake) Transfer(_ context.Context, req payment.TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TransferErr != nil {
		return "", f.TransferErr
	}
	if id, ok := f.transferByKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return id, nil
	}
	f.nextID++
	id := fmt.Sprintf("tr_fake_%d", f.nextID)
	f.Transfers = append(f.Transfers, req)
	if req.IdempotencyKey != "" {
		f.transferByKey[req.IdempotencyKey] = id
	}
	return id, nil
}

// ParseWebhook expects the payload to be a JSON encoded payment.Event.
func (f *Fake) ParseWebhook(_ context.Context, payload []byte, header http.Header) (*payment.Event, error) {
	if header.Get(SignatureHeader) != f.Secret {
		return nil, payment.ErrInvalidSignature
	}
	var ev payment.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("%w: missing id", payment.ErrMalformedPayload)
	}
	return &ev, nil
}

// CheckoutCount returns the number of checkouts created so far.
func (f *Fake) CheckoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Checkouts)
}

// CancelledSubscriptions returns a copy of the cancelled subscription ids.
func (f *Fake) CancelledSubscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Cancelled...)
}

// TransferCount returns the number of distinct transfers made.
func (f *Fake) TransferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Transfers)
}
