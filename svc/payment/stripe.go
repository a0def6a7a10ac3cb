package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeConfig configures the Stripe backend.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	// APIURL overrides the API host, for stripe-mock or tests.
	APIURL string `env:"STRIPE_API_URL"`
}

// StripeProvider implements Provider and Transferer on stripe-go.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider requires a secret key and a webhook secret.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: stripe secret key is required", ErrInvalidConfig)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: stripe webhook secret is required", ErrInvalidConfig)
	}

	var backends *stripe.Backends
	if cfg.APIURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(cfg.APIURL),
			MaxNetworkRetries: stripe.Int64(0),
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	return &StripeProvider{api: api, webhookSecret: cfg.WebhookSecret}, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) EnsureCustomer(_ context.Context, req CustomerRequest) (string, error) {
	if req.ExistingID != "" {
		return req.ExistingID, nil
	}
	if req.Email == "" {
		return "", fmt.Errorf("%w: customer email is required", ErrInvalidRequest)
	}

	params := &stripe.CustomerParams{Email: stripe.String(req.Email)}
	if req.Name != "" {
		params.Name = stripe.String(req.Name)
	}
	params.AddMetadata("user_id", req.UserID.String())
	params.SetIdempotencyKey("customer-" + req.UserID.String())

	cus, err := p.api.Customers.New(params)
	if err != nil {
		return "", errors.Join(ErrProviderUnavailable, err)
	}
	return cus.ID, nil
}

func (p *StripeProvider) CreateCheckoutLink(_ context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.CustomerID == "" || req.PriceID == "" {
		return nil, fmt.Errorf("%w: customer and price are required", ErrInvalidRequest)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(req.CustomerID),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	return &CheckoutLink{
		URL:       sess.URL,
		SessionID: sess.ID,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
	}, nil
}

func (p *StripeProvider) CancelSubscription(_ context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	_, err := p.api.Subscriptions.Cancel(subscriptionID, &stripe.SubscriptionCancelParams{})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil
		}
		if errors.As(err, &stripeErr) && strings.Contains(stripeErr.Msg, "canceled subscription") {
			return nil
		}
		return errors.Join(ErrProviderUnavailable, err)
	}
	return nil
}

func (p *StripeProvider) Transfer(_ context.Context, req TransferRequest) (string, error) {
	if req.AmountCents <= 0 || req.Destination == "" {
		return "", fmt.Errorf("%w: positive amount and destination are required", ErrInvalidRequest)
	}
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.Destination),
	}
	if req.Group != "" {
		params.TransferGroup = stripe.String(req.Group)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	tr, err := p.api.Transfers.New(params)
	if err != nil {
		return "", errors.Join(ErrProviderUnavailable, err)
	}
	return tr.ID, nil
}

func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, header http.Header) (*Event, error) {
	raw, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	ev := &Event{
		ID:           raw.ID,
		ProviderType: string(raw.Type),
		OccurredAt:   time.Unix(raw.Created, 0).UTC(),
	}

	switch raw.Type {
	case "invoice.paid", "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(raw.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		ev.Type = EventPaymentSucceeded
		if raw.Type == "invoice.payment_failed" {
			ev.Type = EventPaymentFailed
		}
		ev.PaymentID = inv.ID
		ev.AmountCents = inv.AmountPaid
		if ev.Type == EventPaymentFailed {
			ev.AmountCents = inv.AmountDue
		}
		ev.Currency = string(inv.Currency)
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			ev.SubscriptionID = inv.Subscription.ID
			ev.Recurring = true
			ev.applyMetadata(inv.Subscription.Metadata)
		}
		if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
			ev.OccurredAt = time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
		}
		ev.applyMetadata(inv.Metadata)
		if err := p.resolveSubscriptionMetadata(ev); err != nil {
			return nil, err
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(raw.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		ev.Type = EventSubscriptionUpdated
		if raw.Type == "customer.subscription.deleted" {
			ev.Type = EventSubscriptionCancelled
		}
		ev.SubscriptionID = sub.ID
		ev.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		ev.applyMetadata(sub.Metadata)

	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &sess); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		ev.Type = EventCheckoutCompleted
		ev.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
		ev.PaymentID = sess.ID
		ev.AmountCents = sess.AmountTotal
		ev.Currency = string(sess.Currency)
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}
		ev.applyMetadata(sess.Metadata)

	default:
		ev.Type = EventIgnored
	}

	return ev, nil
}

// resolveSubscriptionMetadata fetches the subscription when an invoice
// carries no account correlation. Takeover subscriptions hold it in their
// metadata and their first invoice can arrive before checkout completion.
func (p *StripeProvider) resolveSubscriptionMetadata(ev *Event) error {
	if ev.AccountID != uuid.Nil || ev.SubscriptionID == "" {
		return nil
	}
	sub, err := p.api.Subscriptions.Get(ev.SubscriptionID, nil)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil
		}
		return errors.Join(ErrProviderUnavailable, err)
	}
	ev.applyMetadata(sub.Metadata)
	return nil
}
