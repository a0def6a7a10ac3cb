package account_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/core"
	accountmod "github.com/photovault/photovault/modules/account"
	"github.com/photovault/photovault/svc/account"
)

type statusStub map[uuid.UUID]account.Status

func (s statusStub) EffectiveStatus(_ context.Context, id uuid.UUID) (account.Status, error) {
	if id == uuid.Max {
		return "", errors.New("db down")
	}
	st, ok := s[id]
	if !ok {
		return "", account.ErrNotFound
	}
	return st, nil
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.With(core.RequireUser).Mount("/accounts", h)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(core.UserHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStatusHandler(t *testing.T) {
	t.Parallel()

	active, grace, suspended := uuid.New(), uuid.New(), uuid.New()
	stub := statusStub{
		active:    account.StatusActive,
		grace:     account.StatusGracePeriod,
		suspended: account.StatusSuspended,
	}
	router := accountmod.Router(accountmod.RouterOptions{
		Status: accountmod.NewStatusHandler(stub, nil),
	})

	tests := []struct {
		name    string
		id      string
		code    int
		status  account.Status
		canView bool
	}{
		{"active", active.String(), http.StatusOK, account.StatusActive, true},
		{"grace keeps access", grace.String(), http.StatusOK, account.StatusGracePeriod, true},
		{"suspended", suspended.String(), http.StatusOK, account.StatusSuspended, false},
		{"unknown", uuid.NewString(), http.StatusNotFound, "", false},
		{"bad id", "nope", http.StatusBadRequest, "", false},
		{"store error", uuid.Max.String(), http.StatusInternalServerError, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, router, "/accounts/"+tt.id+"/status")
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}
			var body struct {
				Data accountmod.StatusResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Data.Status)
			assert.Equal(t, tt.canView, body.Data.CanView)
		})
	}
}

func TestRouter_SkipsMissingHandlers(t *testing.T) {
	t.Parallel()

	router := accountmod.Router(accountmod.RouterOptions{})
	rec := serve(t, router, "/accounts/"+uuid.NewString()+"/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
