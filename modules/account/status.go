package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/svc/account"
)

// StatusReader answers access-control status lookups.
type StatusReader interface {
	EffectiveStatus(ctx context.Context, id uuid.UUID) (account.Status, error)
}

// StatusResponse is the body of GET /accounts/{id}/status.
type StatusResponse struct {
	AccountID uuid.UUID      `json:"account_id"`
	Status    account.Status `json:"status"`
	CanView   bool           `json:"can_view"`
}

type StatusHandler struct {
	accounts StatusReader
	log      *slog.Logger
}

func NewStatusHandler(accounts StatusReader, log *slog.Logger) *StatusHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StatusHandler{accounts: accounts, log: log}
}

func (h *StatusHandler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.status)
	return r
}

func (h *StatusHandler) status(w http.ResponseWriter, r *http.Request) {
	id, err := core.UUIDParam(chi.URLParam(r, "id"), "account id")
	if err != nil {
		core.Fail(w, r, h.log, err)
		return
	}

	st, err := h.accounts.EffectiveStatus(r.Context(), id)
	switch {
	case errors.Is(err, account.ErrNotFound):
		core.Fail(w, r, h.log, core.ErrNotFound.WithMessage("account not found"))
		return
	case err != nil:
		core.Fail(w, r, h.log, core.ErrInternalServerError.WithCause(err))
		return
	}

	_ = core.JSON(w, http.StatusOK, "account_status", StatusResponse{
		AccountID: id,
		Status:    st,
		CanView:   st != account.StatusSuspended,
	}, nil)
}
