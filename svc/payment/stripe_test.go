package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/svc/payment"
)

const stripeSecret = "whsec_unit"

func signStripe(t *testing.T, payload string) http.Header {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(stripeSecret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return h
}

func newStripe(t *testing.T, handler http.HandlerFunc) *payment.StripeProvider {
	t.Helper()
	cfg := payment.StripeConfig{SecretKey: "sk_test_unit", WebhookSecret: stripeSecret}
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		cfg.APIURL = srv.URL
	}
	p, err := payment.NewStripeProvider(cfg)
	require.NoError(t, err)
	return p
}

func stripeEvent(id, typ, object string) string {
	return fmt.Sprintf(`{"id":%q,"object":"event","api_version":"2022-11-15","created":1763553600,"type":%q,"data":{"object":%s}}`,
		id, typ, object)
}

func TestNewStripeProvider_Config(t *testing.T) {
	t.Parallel()

	_, err := payment.NewStripeProvider(payment.StripeConfig{WebhookSecret: "x"})
	require.ErrorIs(t, err, payment.ErrInvalidConfig)
	_, err = payment.NewStripeProvider(payment.StripeConfig{SecretKey: "x"})
	require.ErrorIs(t, err, payment.ErrInvalidConfig)
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	t.Parallel()

	accountID := uuid.New()

	t.Run("invoice paid with account metadata", func(t *testing.T) {
		t.Parallel()
		p := newStripe(t, nil)
		payload := stripeEvent("evt_1", "invoice.paid", fmt.Sprintf(
			`{"id":"in_1","object":"invoice","customer":"cus_1","subscription":"sub_1","amount_paid":800,"amount_due":800,"currency":"usd","status_transitions":{"paid_at":1763553600},"metadata":{"account_id":%q}}`,
			accountID))

		ev, err := p.ParseWebhook(context.Background(), []byte(payload), signStripe(t, payload))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, payment.EventPaymentSucceeded, ev.Type)
		assert.Equal(t, "invoice.paid", ev.ProviderType)
		assert.Equal(t, accountID, ev.AccountID)
		assert.Equal(t, "in_1", ev.PaymentID)
		assert.Equal(t, "cus_1", ev.CustomerID)
		assert.Equal(t, "sub_1", ev.SubscriptionID)
		assert.Equal(t, int64(800), ev.AmountCents)
		assert.Equal(t, "usd", ev.Currency)
		assert.True(t, ev.Recurring)
		assert.Equal(t, time.Date(2025, 11, 19, 12, 0, 0, 0, time.UTC), ev.OccurredAt)
	})

	t.Run("invoice without metadata resolves subscription", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		p := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "/v1/subscriptions/sub_2", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"id":"sub_2","object":"subscription","metadata":{"account_id":%q,"secondary_id":"%s","takeover_type":"delinquent"}}`,
				accountID, uuid.New())
		})
		payload := stripeEvent("evt_2", "invoice.payment_failed",
			`{"id":"in_2","object":"invoice","customer":"cus_2","subscription":"sub_2","amount_paid":0,"amount_due":800,"currency":"usd"}`)

		ev, err := p.ParseWebhook(context.Background(), []byte(payload), signStripe(t, payload))
		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, payment.EventPaymentFailed, ev.Type)
		assert.Equal(t, accountID, ev.AccountID)
		assert.Equal(t, int64(800), ev.AmountCents)
		assert.True(t, ev.IsTakeover())
	})

	t.Run("subscription updated", func(t *testing.T) {
		t.Parallel()
		p := newStripe(t, nil)
		payload := stripeEvent("evt_3", "customer.subscription.updated",
			`{"id":"sub_3","object":"subscription","customer":"cus_3","cancel_at_period_end":true,"metadata":{}}`)

		ev, err := p.ParseWebhook(context.Background(), []byte(payload), signStripe(t, payload))
		require.NoError(t, err)
		assert.Equal(t, payment.EventSubscriptionUpdated, ev.Type)
		assert.True(t, ev.CancelAtPeriodEnd)
		assert.Equal(t, "sub_3", ev.SubscriptionID)
	})

	t.Run("checkout completed with takeover metadata", func(t *testing.T) {
		t.Parallel()
		p := newStripe(t, nil)
		secondary := uuid.New()
		payload := stripeEvent("evt_4", "checkout.session.completed", fmt.Sprintf(
			`{"id":"cs_4","object":"checkout.session","customer":"cus_4","subscription":"sub_4","amount_total":800,"currency":"usd","payment_status":"paid","metadata":{"account_id":%q,"secondary_id":%q,"takeover_type":"voluntary"}}`,
			accountID, secondary))

		ev, err := p.ParseWebhook(context.Background(), []byte(payload), signStripe(t, payload))
		require.NoError(t, err)
		assert.Equal(t, payment.EventCheckoutCompleted, ev.Type)
		assert.True(t, ev.IsTakeover())
		assert.True(t, ev.Paid)
		assert.True(t, ev.ConfirmsPayment())
		assert.Equal(t, secondary.String(), ev.Metadata[payment.MetaSecondaryID])
		assert.Equal(t, "sub_4", ev.SubscriptionID)
	})

	t.Run("checkout payment status", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name      string
			eventType string
			status    string
			paid      bool
		}{
			{name: "async method not yet settled", eventType: "checkout.session.completed", status: "unpaid", paid: false},
			{name: "no payment required", eventType: "checkout.session.completed", status: "no_payment_required", paid: false},
			{name: "async payment succeeded", eventType: "checkout.session.async_payment_succeeded", status: "paid", paid: true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				p := newStripe(t, nil)
				payload := stripeEvent("evt_cs", tt.eventType, fmt.Sprintf(
					`{"id":"cs_5","object":"checkout.session","customer":"cus_5","subscription":"sub_5","payment_status":%q,"metadata":{"account_id":%q,"secondary_id":%q,"takeover_type":"delinquent"}}`,
					tt.status, accountID, uuid.New()))

				ev, err := p.ParseWebhook(context.Background(), []byte(payload), signStripe(t, payload))
				require.NoError(t, err)
				assert.Equal(t, payment.EventCheckoutCompleted, ev.Type)
				assert.True(t, ev.IsTakeover())
				assert.Equal(t, tt.paid, ev.Paid)
				assert.Equal(t, tt.paid, ev.ConfirmsPayment())
			})
		}
	})

	t.Run("unhandled type is ignored", func(t *testing.T) {
		t.Parallel()
		p := newStripe(t, nil)
		payload := stripeEvent("evt_5", "customer.created", `{"id":"cus_5","object":"customer"}`)
		ev, err := p.ParseWebhook(context.Background(), []byte(payload), signStripe(t, payload))
		require.NoError(t, err)
		assert.Equal(t, payment.EventIgnored, ev.Type)
	})

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		p := newStripe(t, nil)
		payload := stripeEvent("evt_6", "invoice.paid", `{"id":"in_6","object":"invoice"}`)
		h := http.Header{}
		h.Set("Stripe-Signature", "t=1,v1=deadbeef")
		_, err := p.ParseWebhook(context.Background(), []byte(payload), h)
		require.ErrorIs(t, err, payment.ErrInvalidSignature)
	})
}

func TestStripeProvider_APICalls(t *testing.T) {
	t.Parallel()

	var (
		idempotencyKeys []string
		paths           []string
	)
	p := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		paths = append(paths, r.Method+" "+r.URL.Path)
		idempotencyKeys = append(idempotencyKeys, r.Header.Get("Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/customers":
			assert.Equal(t, "payer@example.com", r.Form.Get("email"))
			_, _ = w.Write([]byte(`{"id":"cus_new","object":"customer"}`))
		case r.URL.Path == "/v1/checkout/sessions":
			assert.Equal(t, "subscription", r.Form.Get("mode"))
			assert.Equal(t, "price_800", r.Form.Get("line_items[0][price]"))
			assert.Equal(t, "delinquent", r.Form.Get("metadata[takeover_type]"))
			assert.Equal(t, "delinquent", r.Form.Get("subscription_data[metadata][takeover_type]"))
			_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.test/cs_1","expires_at":1763640000}`))
		case strings.HasPrefix(r.URL.Path, "/v1/subscriptions/"):
			assert.Equal(t, http.MethodDelete, r.Method)
			_, _ = w.Write([]byte(`{"id":"sub_old","object":"subscription","status":"canceled"}`))
		case r.URL.Path == "/v1/transfers":
			assert.Equal(t, "400", r.Form.Get("amount"))
			assert.Equal(t, "acct_photog", r.Form.Get("destination"))
			_, _ = w.Write([]byte(`{"id":"tr_1","object":"transfer"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"no route"}}`))
		}
	})

	ctx := context.Background()
	userID := uuid.New()

	id, err := p.EnsureCustomer(ctx, payment.CustomerRequest{UserID: userID, ExistingID: "cus_known"})
	require.NoError(t, err)
	assert.Equal(t, "cus_known", id)

	id, err = p.EnsureCustomer(ctx, payment.CustomerRequest{UserID: userID, Email: "payer@example.com", Name: "Pat"})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", id)

	link, err := p.CreateCheckoutLink(ctx, payment.CheckoutRequest{
		CustomerID: "cus_new",
		PriceID:    "price_800",
		SuccessURL: "https://app.test/ok",
		CancelURL:  "https://app.test/cancel",
		Metadata:   map[string]string{payment.MetaTakeoverType: "delinquent"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", link.URL)
	assert.Equal(t, "cs_1", link.SessionID)

	require.NoError(t, p.CancelSubscription(ctx, "sub_old"))
	require.NoError(t, p.CancelSubscription(ctx, ""))

	trID, err := p.Transfer(ctx, payment.TransferRequest{
		AmountCents:    400,
		Currency:       "USD",
		Destination:    "acct_photog",
		IdempotencyKey: "commission-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr_1", trID)

	_, err = p.Transfer(ctx, payment.TransferRequest{AmountCents: 0, Destination: "acct"})
	require.ErrorIs(t, err, payment.ErrInvalidRequest)

	assert.Equal(t, []string{
		"POST /v1/customers",
		"POST /v1/checkout/sessions",
		"DELETE /v1/subscriptions/sub_old",
		"POST /v1/transfers",
	}, paths)
	assert.Equal(t, "customer-"+userID.String(), idempotencyKeys[0])
	assert.Equal(t, "commission-1", idempotencyKeys[3])
}
