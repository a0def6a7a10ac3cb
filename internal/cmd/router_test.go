package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/payment"
	"github.com/photovault/photovault/svc/payment/paymenttest"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("STORE_DRIVER", driverMemory)
	t.Setenv("BILLING_PROVIDER", "fake")
	t.Setenv("EMAIL_DRIVER", "log")
	t.Setenv("STATUS_CACHE", "memory")
	a, err := newApp(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestRouter_Health(t *testing.T) {
	a := newTestApp(t)
	h := a.router()

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_RequiresCaller(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/"+uuid.NewString()+"/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PaymentFailureStartsGrace(t *testing.T) {
	a := newTestApp(t)
	h := a.router()
	ctx := context.Background()

	owner := uuid.New()
	acc, err := a.accounts.Create(ctx, account.Account{UserID: owner, ProviderSubscriptionID: "sub_1", ProviderCustomerID: "cus_1"})
	require.NoError(t, err)

	ev := payment.Event{
		ID:             "evt_fail_1",
		Type:           payment.EventPaymentFailed,
		AccountID:      acc.ID,
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		OccurredAt:     time.Now(),
	}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	deliver := func() int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/fake", bytes.NewReader(payload))
		req.Header.Set(paymenttest.SignatureHeader, a.cfg.FakeWebhookSecret)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, deliver())
	require.Equal(t, http.StatusOK, deliver(), "redelivery is acknowledged")

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+acc.ID.String()+"/status", nil)
	req.Header.Set(core.UserHeader, owner.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Status  account.Status `json:"status"`
			CanView bool           `json:"can_view"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, account.StatusGracePeriod, body.Data.Status)
	assert.True(t, body.Data.CanView)

	require.NoError(t, a.sweep(ctx))
	require.NotNil(t, a.payouts)
	require.NoError(t, a.payout(ctx))
}
