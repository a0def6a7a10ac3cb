package core_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photovault/photovault/core"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) core.JSONResponse {
	t.Helper()
	var body core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, core.JSON(rec, http.StatusCreated, "created", map[string]string{"id": "1"}, nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, "created", body.Code)
	assert.Nil(t, body.Error)
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"http error", core.ErrConflict, http.StatusConflict, "conflict", "Conflict"},
		{"http error with message", core.ErrForbidden.WithMessage("not a member"), http.StatusForbidden, "forbidden", "not a member"},
		{"wrapped http error", errors.Join(errors.New("ctx"), core.ErrNotFound), http.StatusNotFound, "not_found", "Not Found"},
		{"validation", core.ValidationError{"gallery_ids": {"required"}}, http.StatusUnprocessableEntity, "validation_error", "request validation failed"},
		{"plain error is hidden", errors.New("pq: password leaked"), http.StatusInternalServerError, "internal_server_error", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			require.NoError(t, core.JSONError(rec, tt.err))
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

type incorporateRequest struct {
	GalleryIDs []string `json:"gallery_ids" validate:"required,min=1,max=50,dive,uuid"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"gallery_ids":["`+uuid.NewString()+`"]}`))
		var dst incorporateRequest
		require.NoError(t, core.DecodeJSON(req, &dst))
		assert.Len(t, dst.GalleryIDs, 1)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		var dst incorporateRequest
		var httpErr core.HTTPError
		require.ErrorAs(t, core.DecodeJSON(req, &dst), &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})

	t.Run("fails validation", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"gallery_ids":[]}`))
		var dst incorporateRequest
		var valErr core.ValidationError
		require.ErrorAs(t, core.DecodeJSON(req, &dst), &valErr)
		assert.Contains(t, valErr, "gallery_ids")
	})
}

func TestRequireUser(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	h := core.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := core.UserIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, userID, id)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(core.UserHeader, userID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, header := range []string{"", "not-a-uuid", uuid.Nil.String()} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(core.UserHeader, header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestFail_HidesCause(t *testing.T) {
	t.Parallel()

	var logs strings.Builder
	log := slog.New(slog.NewTextHandler(&logs, nil))
	cause := errors.New("dial tcp: connection refused")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/accounts/1/status", nil)
	core.Fail(rec, req, log, core.ErrBadGateway.WithCause(cause))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, logs.String(), "connection refused")

	err := core.ErrBadGateway.WithCause(cause)
	assert.ErrorIs(t, err, cause)

	logs.Reset()
	rec = httptest.NewRecorder()
	core.Fail(rec, req, log, core.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, logs.String(), "client errors are not logged")
}
