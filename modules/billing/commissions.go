package billing

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/svc/commission"
)

type Reporter interface {
	Report(ctx context.Context, photographerID uuid.UUID) (*commission.Report, error)
}

type CommissionsHandler struct {
	reports Reporter
	log     *slog.Logger
}

func NewCommissionsHandler(reports Reporter, log *slog.Logger) *CommissionsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CommissionsHandler{reports: reports, log: log}
}

// Handle serves GET /photographers/{id}/commissions. Photographers only see
// their own earnings.
func (h *CommissionsHandler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/{id}/commissions", h.report)
	return r
}

func (h *CommissionsHandler) report(w http.ResponseWriter, r *http.Request) {
	id, err := core.UUIDParam(chi.URLParam(r, "id"), "photographer id")
	if err != nil {
		core.Fail(w, r, h.log, err)
		return
	}
	if caller, _ := core.UserIDFromContext(r.Context()); caller != id {
		core.Fail(w, r, h.log, core.ErrForbidden)
		return
	}
	rep, err := h.reports.Report(r.Context(), id)
	if err != nil {
		core.Fail(w, r, h.log, core.ErrInternalServerError.WithCause(err))
		return
	}
	_ = core.JSON(w, http.StatusOK, "commission_report", rep, nil)
}
