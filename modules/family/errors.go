package family

import (
	"errors"
	"net/http"

	"github.com/photovault/photovault/core"
	"github.com/photovault/photovault/svc/account"
	"github.com/photovault/photovault/svc/family"
	"github.com/photovault/photovault/svc/payment"
)

// httpError maps takeover and membership errors to transport errors.
func httpError(err error) error {
	var taken *family.AlreadyTakenOverError
	var notEligible *family.NotEligibleError
	switch {
	case errors.As(err, &taken):
		msg := "billing for this account was already taken over"
		if taken.PayerName != "" {
			msg = "billing for this account is already paid by " + taken.PayerName
		}
		return core.NewHTTPError(http.StatusConflict, "already_taken_over").WithMessage(msg)
	case errors.As(err, &notEligible):
		return core.NewHTTPError(http.StatusForbidden, "not_eligible").WithMessage(notEligible.Reason)
	case errors.Is(err, family.ErrNotEligible):
		return core.NewHTTPError(http.StatusForbidden, "not_eligible")
	case errors.Is(err, account.ErrNotFound):
		return core.ErrNotFound.WithMessage("account not found")
	case errors.Is(err, family.ErrNotFound):
		return core.ErrNotFound.WithMessage("membership not found")
	case errors.Is(err, family.ErrAlreadyMember):
		return core.ErrConflict.WithMessage(err.Error())
	case errors.Is(err, family.ErrInvalidStatus):
		return core.ErrConflict.WithMessage(err.Error())
	case errors.Is(err, family.ErrInvalidRequest):
		return core.ErrBadRequest.WithMessage(err.Error())
	case errors.Is(err, payment.ErrProviderUnavailable), errors.Is(err, payment.ErrInvalidRequest):
		return core.ErrBadGateway.WithMessage("billing provider unavailable, try again").WithCause(err)
	default:
		return core.ErrInternalServerError.WithCause(err)
	}
}
