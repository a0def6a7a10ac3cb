// Package family serves the takeover and membership endpoints.
package family

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/svc/family"
	"github.com/photovault/photovault/svc/payment"
)

// Takeovers is the takeover part of family.Service.
type Takeovers interface {
	Eligibility(ctx context.Context, accountID, userID uuid.UUID) (*family.Eligibility, error)
	Start(ctx context.Context, req family.StartRequest) (*payment.CheckoutLink, error)
}

// CheckoutResponse is the body of a started takeover.
type CheckoutResponse struct {
	CheckoutURL string    `json:"checkout_url"`
	SessionID   string    `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type TakeoverHandler struct {
	svc Takeovers
	log *slog.Logger
}

func NewTakeoverHandler(svc Takeovers, log *slog.Logger) *TakeoverHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TakeoverHandler{svc: svc, log: log}
}

// Handle serves GET (eligibility quote) and POST (start checkout) on
// /accounts/{id}/takeover.
func (h *TakeoverHandler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.eligibility)
	r.Post("/", h.start)
	return r
}

func (h *TakeoverHandler) eligibility(w http.ResponseWriter, r *http.Request) {
	accountID, userID, ok := h.ids(w, r)
	if !ok {
		return
	}
	el, err := h.svc.Eligibility(r.Context(), accountID, userID)
	if err != nil {
		core.Fail(w, r, h.log, httpError(err))
		return
	}
	_ = core.JSON(w, http.StatusOK, "takeover_eligibility", el, nil)
}

func (h *TakeoverHandler) start(w http.ResponseWriter, r *http.Request) {
	accountID, userID, ok := h.ids(w, r)
	if !ok {
		return
	}
	link, err := h.svc.Start(r.Context(), family.StartRequest{AccountID: accountID, UserID: userID})
	if err != nil {
		core.Fail(w, r, h.log, httpError(err))
		return
	}
	_ = core.JSON(w, http.StatusCreated, "takeover_checkout", CheckoutResponse{
		CheckoutURL: link.URL,
		SessionID:   link.SessionID,
		ExpiresAt:   link.ExpiresAt,
	}, nil)
}

func (h *TakeoverHandler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := core.UserIDFromContext(r.Context())
	if !ok {
		core.Fail(w, r, h.log, core.ErrUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	accountID, err := core.UUIDParam(chi.URLParam(r, "id"), "account id")
	if err != nil {
		core.Fail(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	return accountID, userID, true
}
