package family

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/family"
)

// Members is the membership part of family.Service.
type Members interface {
	Invite(ctx context.Context, accountID, userID uuid.UUID) (*family.Member, error)
	Accept(ctx context.Context, accountID, userID uuid.UUID) (*family.Member, error)
	Revoke(ctx context.Context, accountID, userID uuid.UUID) error
}

// Owners resolves account ownership.
type Owners interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type inviteRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type MembersHandler struct {
	svc    Members
	owners Owners
	log    *slog.Logger
}

func NewMembersHandler(svc Members, owners Owners, log *slog.Logger) *MembersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MembersHandler{svc: svc, owners: owners, log: log}
}

// Handle serves /accounts/{id}/members. The account holder invites and
// revokes; the invited user accepts.
func (h *MembersHandler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.invite)
	r.Post("/accept", h.accept)
	r.Delete("/{userID}", h.revoke)
	return r
}

func (h *MembersHandler) invite(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Fail(w, r, h.log, err)
		return
	}
	m, err := h.svc.Invite(r.Context(), accountID, uuid.MustParse(req.UserID))
	if err != nil {
		core.Fail(w, r, h.log, httpError(err))
		return
	}
	_ = core.JSON(w, http.StatusCreated, "member_invited", m, nil)
}

func (h *MembersHandler) accept(w http.ResponseWriter, r *http.Request) {
	userID, _ := core.UserIDFromContext(r.Context())
	accountID, err := core.UUIDParam(chi.URLParam(r, "id"), "account id")
	if err != nil {
		core.Fail(w, r, h.log, err)
		return
	}
	m, err := h.svc.Accept(r.Context(), accountID, userID)
	if err != nil {
		core.Fail(w, r, h.log, httpError(err))
		return
	}
	_ = core.JSON(w, http.StatusOK, "member_accepted", m, nil)
}

func (h *MembersHandler) revoke(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	userID, err := core.UUIDParam(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		core.Fail(w, r, h.log, err)
		return
	}
	if err := h.svc.Revoke(r.Context(), accountID, userID); err != nil {
		core.Fail(w, r, h.log, httpError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MembersHandler) requireOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	accountID, err := core.UUIDParam(chi.URLParam(r, "id"), "account id")
	if err != nil {
		core.Fail(w, r, h.log, err)
		return uuid.Nil, false
	}
	acc, err := h.owners.Get(r.Context(), accountID)
	if err != nil {
		core.Fail(w, r, h.log, httpError(err))
		return uuid.Nil, false
	}
	if caller, _ := core.UserIDFromContext(r.Context()); caller != acc.UserID {
		core.Fail(w, r, h.log, core.ErrForbidden.WithMessage("only the account holder can manage members"))
		return uuid.Nil, false
	}
	return accountID, true
}
