package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig configures the Paddle Billing backend.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	BaseURL       string `env:"PADDLE_BASE_URL"`
}

// PaddleProvider implements Provider on the Paddle Billing SDK.
// Paddle has no connected-account transfers, so it is not a Transferer.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider requires an API key and a webhook secret. Environment
// "sandbox" targets the Paddle sandbox.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" || cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: paddle api key and webhook secret are required", ErrInvalidConfig)
	}

	var opts []paddle.Option
	if cfg.BaseURL != "" {
		opts = append(opts, paddle.WithBaseURL(cfg.BaseURL))
	}

	var (
		sdk *paddle.SDK
		err error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		sdk, err = paddle.NewSandbox(cfg.APIKey, opts...)
	case "production", "":
		sdk, err = paddle.New(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("%w: paddle environment %q", ErrInvalidConfig, cfg.Environment)
	}
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &PaddleProvider{client: sdk, verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret)}, nil
}

func (p *PaddleProvider) Name() string { return "paddle" }

func (p *PaddleProvider) EnsureCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	if req.ExistingID != "" {
		return req.ExistingID, nil
	}
	if req.Email == "" {
		return "", fmt.Errorf("%w: customer email is required", ErrInvalidRequest)
	}

	creq := &paddle.CreateCustomerRequest{
		Email:      req.Email,
		CustomData: paddle.CustomData{"user_id": req.UserID.String()},
	}
	if req.Name != "" {
		creq.Name = paddle.PtrTo(req.Name)
	}
	cus, err := p.client.CustomersClient.CreateCustomer(ctx, creq)
	if err != nil {
		return "", errors.Join(ErrProviderUnavailable, err)
	}
	return cus.ID, nil
}

func (p *PaddleProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.CustomerID == "" || req.PriceID == "" {
		return nil, fmt.Errorf("%w: customer and price are required", ErrInvalidRequest)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})
	custom := make(paddle.CustomData, len(req.Metadata))
	for k, v := range req.Metadata {
		custom[k] = v
	}
	treq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomerID: paddle.PtrTo(req.CustomerID),
		CustomData: custom,
	}
	if req.SuccessURL != "" {
		treq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(req.SuccessURL)}
	}

	txn, err := p.client.TransactionsClient.CreateTransaction(ctx, treq)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if txn.Checkout == nil || txn.Checkout.URL == nil {
		return nil, fmt.Errorf("%w: paddle returned no checkout url", ErrProviderUnavailable)
	}
	return &CheckoutLink{
		URL:       *txn.Checkout.URL,
		SessionID: txn.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC(),
	}, nil
}

func (p *PaddleProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromImmediately),
	})
	if err != nil {
		if strings.Contains(err.Error(), "subscription_locked_canceled") || strings.Contains(err.Error(), "not_found") {
			return nil
		}
		return errors.Join(ErrProviderUnavailable, err)
	}
	return nil
}

type paddleNotification struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type paddleTransaction struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	CustomerID     string         `json:"customer_id"`
	SubscriptionID string         `json:"subscription_id"`
	CurrencyCode   string         `json:"currency_code"`
	Origin         string         `json:"origin"`
	BilledAt       *time.Time     `json:"billed_at"`
	CustomData     map[string]any `json:"custom_data"`
	Details        struct {
		Totals struct {
			GrandTotal string `json:"grand_total"`
		} `json:"totals"`
	} `json:"details"`
}

type paddleSubscription struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	CustomerID      string         `json:"customer_id"`
	CustomData      map[string]any `json:"custom_data"`
	ScheduledChange *struct {
		Action string `json:"action"`
	} `json:"scheduled_change"`
}

func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhooks/paddle", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	req.Header.Set("Paddle-Signature", header.Get("Paddle-Signature"))

	ok, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !ok {
		return nil, ErrInvalidSignature
	}

	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if n.EventID == "" {
		return nil, fmt.Errorf("%w: missing event_id", ErrMalformedPayload)
	}

	ev := &Event{ID: n.EventID, ProviderType: n.EventType, OccurredAt: n.OccurredAt.UTC()}

	switch n.EventType {
	case "transaction.completed", "transaction.payment_failed":
		var t paddleTransaction
		if err := json.Unmarshal(n.Data, &t); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		ev.Type = EventPaymentSucceeded
		if n.EventType == "transaction.payment_failed" {
			ev.Type = EventPaymentFailed
		}
		ev.PaymentID = t.ID
		ev.CustomerID = t.CustomerID
		ev.SubscriptionID = t.SubscriptionID
		ev.Currency = strings.ToLower(t.CurrencyCode)
		ev.Recurring = t.SubscriptionID != ""
		if t.Details.Totals.GrandTotal != "" {
			amount, err := strconv.ParseInt(t.Details.Totals.GrandTotal, 10, 64)
			if err != nil {
				return nil, errors.Join(ErrMalformedPayload, err)
			}
			ev.AmountCents = amount
		}
		if t.BilledAt != nil && ev.Type == EventPaymentSucceeded {
			ev.OccurredAt = t.BilledAt.UTC()
		}
		ev.applyMetadata(stringMap(t.CustomData))

	case "subscription.updated", "subscription.canceled":
		var s paddleSubscription
		if err := json.Unmarshal(n.Data, &s); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		ev.Type = EventSubscriptionUpdated
		if n.EventType == "subscription.canceled" {
			ev.Type = EventSubscriptionCancelled
		}
		ev.SubscriptionID = s.ID
		ev.CustomerID = s.CustomerID
		ev.CancelAtPeriodEnd = s.ScheduledChange != nil && s.ScheduledChange.Action == "cancel"
		ev.applyMetadata(stringMap(s.CustomData))

	default:
		ev.Type = EventIgnored
	}

	return ev, nil
}

func stringMap(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
