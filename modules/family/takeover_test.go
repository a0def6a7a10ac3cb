package family_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/core"
	accountmod "github.com/photovault/photovault/modules/account"
	familymod "github.com/photovault/photovault/modules/family"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/family"
	"github.com/photovault/photovault/svc/payment"
)

type takeoverStub struct {
	err  error
	link *payment.CheckoutLink
	el   *family.Eligibility
	got  family.StartRequest
}

func (s *takeoverStub) Eligibility(_ context.Context, accountID, userID uuid.UUID) (*family.Eligibility, error) {
	return s.el, s.err
}

func (s *takeoverStub) Start(_ context.Context, req family.StartRequest) (*payment.CheckoutLink, error) {
	s.got = req
	return s.link, s.err
}

func do(t *testing.T, h http.Handler, method, path string, user uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.With(core.RequireUser).Mount("/accounts", h)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(core.UserHeader, user.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTakeoverHandler_Start(t *testing.T) {
	t.Parallel()

	accountID, userID := uuid.New(), uuid.New()
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stub := &takeoverStub{link: &payment.CheckoutLink{URL: "https://pay.test/s/1", SessionID: "cs_1", ExpiresAt: expires}}
	router := accountmod.Router(accountmod.RouterOptions{Takeover: familymod.NewTakeoverHandler(stub, nil)})

	rec := do(t, router, http.MethodPost, "/accounts/"+accountID.String()+"/takeover", userID, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data familymod.CheckoutResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "https://pay.test/s/1", body.Data.CheckoutURL)
	assert.Equal(t, "cs_1", body.Data.SessionID)
	assert.True(t, expires.Equal(body.Data.ExpiresAt))
	assert.Equal(t, family.StartRequest{AccountID: accountID, UserID: userID}, stub.got)
}

func TestTakeoverHandler_Eligibility(t *testing.T) {
	t.Parallel()

	stub := &takeoverStub{el: &family.Eligibility{
		Eligible:      true,
		MonthsOverdue: 2,
		GalleryCount:  7,
		TakeoverType:  family.TakeoverDelinquent,
		AccountStatus: "grace_period",
	}}
	router := accountmod.Router(accountmod.RouterOptions{Takeover: familymod.NewTakeoverHandler(stub, nil)})

	rec := do(t, router, http.MethodGet, "/accounts/"+uuid.NewString()+"/takeover", uuid.New(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data family.Eligibility `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, *stub.el, body.Data)
}

func TestTakeoverHandler_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code int
		key  string
		msg  string
	}{
		{
			name: "already taken over",
			err:  &family.AlreadyTakenOverError{AccountID: uuid.New(), PayerName: "Ana"},
			code: http.StatusConflict,
			key:  "already_taken_over",
			msg:  "Ana",
		},
		{
			name: "not eligible",
			err:  &family.NotEligibleError{Reason: family.ReasonNotAccepted},
			code: http.StatusForbidden,
			key:  "not_eligible",
			msg:  family.ReasonNotAccepted,
		},
		{name: "account missing", err: account.ErrNotFound, code: http.StatusNotFound, key: "not_found"},
		{name: "invalid", err: family.ErrInvalidRequest, code: http.StatusBadRequest, key: "bad_request"},
		{
			name: "provider down",
			err:  fmt.Errorf("create checkout: %w", payment.ErrProviderUnavailable),
			code: http.StatusBadGateway,
			key:  "bad_gateway",
		},
		{name: "unexpected", err: fmt.Errorf("boom"), code: http.StatusInternalServerError, key: "internal_server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := accountmod.Router(accountmod.RouterOptions{
				Takeover: familymod.NewTakeoverHandler(&takeoverStub{err: tt.err}, nil),
			})
			rec := do(t, router, http.MethodPost, "/accounts/"+uuid.NewString()+"/takeover", uuid.New(), "")
			require.Equal(t, tt.code, rec.Code)

			var body core.JSONResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.key, body.Error.Code)
			assert.Contains(t, body.Error.Message, tt.msg)
		})
	}
}

func TestTakeoverHandler_BadAccountID(t *testing.T) {
	t.Parallel()

	router := accountmod.Router(accountmod.RouterOptions{Takeover: familymod.NewTakeoverHandler(&takeoverStub{}, nil)})
	rec := do(t, router, http.MethodPost, "/accounts/xyz/takeover", uuid.New(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
