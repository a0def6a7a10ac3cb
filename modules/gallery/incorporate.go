// Package gallery serves gallery incorporation for family members.
package gallery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/svc/gallery"
)

// Incorporator copies family-shared galleries into the caller's account.
type Incorporator interface {
	Incorporate(ctx context.Context, userID uuid.UUID, galleryIDs []uuid.UUID) (*gallery.Result, error)
}

type IncorporateRequest struct {
	GalleryIDs []uuid.UUID `json:"gallery_ids" validate:"required,min=1,max=50"`
}

type Handler struct {
	copier Incorporator
	log    *slog.Logger
}

func NewHandler(copier Incorporator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{copier: copier, log: log}
}

// Handle serves POST /galleries/incorporate.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/incorporate", h.incorporate)
	return r
}

func (h *Handler) incorporate(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.UserIDFromContext(r.Context())
	if !ok {
		core.Fail(w, r, h.log, core.ErrUnauthorized)
		return
	}
	var req IncorporateRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Fail(w, r, h.log, err)
		return
	}

	res, err := h.copier.Incorporate(r.Context(), userID, req.GalleryIDs)
	switch {
	case err == nil:
		_ = core.JSON(w, http.StatusOK, "galleries_incorporated", res, nil)
	case errors.Is(err, gallery.ErrNothingIncorporated):
		_ = core.JSON(w, http.StatusUnprocessableEntity, "nothing_incorporated", res, nil)
	case errors.Is(err, gallery.ErrNoOwnAccount):
		core.Fail(w, r, h.log, core.NewHTTPError(http.StatusForbidden, "no_own_account").
			WithMessage("create your own account before incorporating galleries"))
	case errors.Is(err, gallery.ErrNotEligible):
		core.Fail(w, r, h.log, core.NewHTTPError(http.StatusForbidden, "not_eligible").
			WithMessage("only galleries of accounts you are an accepted member of can be incorporated"))
	case errors.Is(err, gallery.ErrNoGalleries), errors.Is(err, gallery.ErrTooManyGalleries):
		core.Fail(w, r, h.log, core.ErrBadRequest.WithMessage(err.Error()))
	default:
		core.Fail(w, r, h.log, core.ErrInternalServerError.WithCause(err))
	}
}
