// Package billing serves provider webhooks and photographer commission
// reports.
package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/pkg/logger"
	"github.com/photovault/photovault/svc/billing"
	"github.com/photovault/photovault/svc/ledger"
	"github.com/photovault/photovault/svc/payment"
)

// maxPayloadBytes caps webhook bodies. Provider payloads are a few KB.
const maxPayloadBytes = 1 << 20

// WebhookProcessor applies one verified delivery.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, provider string, payload []byte, header http.Header) (billing.Result, error)
}

type WebhookHandler struct {
	proc WebhookProcessor
	log  *slog.Logger
}

func NewWebhookHandler(proc WebhookProcessor, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{proc: proc, log: log}
}

// Handle serves POST /webhooks/{provider}. Any non-2xx answer makes the
// provider redeliver, so only deliveries that were applied, duplicated or
// deliberately ignored are acknowledged.
func (h *WebhookHandler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/{provider}", h.receive)
	return r
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.Fail(w, r, h.log, core.ErrRequestTooLarge)
			return
		}
		core.Fail(w, r, h.log, core.ErrBadRequest.WithMessage("unreadable body"))
		return
	}

	res, err := h.proc.HandleWebhook(r.Context(), provider, payload, r.Header)
	switch {
	case err == nil:
		_ = core.JSON(w, http.StatusOK, "webhook_received", map[string]string{"result": string(res)}, nil)
	case errors.Is(err, billing.ErrUnknownProvider):
		core.Fail(w, r, h.log, core.ErrNotFound.WithMessage("unknown billing provider"))
	case errors.Is(err, payment.ErrInvalidSignature):
		h.log.WarnContext(r.Context(), "webhook rejected", logger.Provider(provider), logger.Error(err))
		core.Fail(w, r, h.log, core.ErrBadRequest.WithMessage("invalid signature"))
	case errors.Is(err, payment.ErrMalformedPayload), errors.Is(err, billing.ErrEmptyPayload):
		core.Fail(w, r, h.log, core.ErrBadRequest.WithMessage(err.Error()))
	case errors.Is(err, ledger.ErrEventInFlight):
		core.Fail(w, r, h.log, core.ErrConflict.WithMessage("event is being processed"))
	default:
		core.Fail(w, r, h.log, core.ErrInternalServerError.WithCause(err))
	}
}
