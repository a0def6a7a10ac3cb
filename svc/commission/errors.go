package commission

import "errors"

var (
	ErrNotFound           = errors.New("commission record not found")
	ErrDuplicatePayment   = errors.New("commission already recorded for this payment")
	ErrAlreadyPaid        = errors.New("commission already paid out")
	ErrInvariantViolation = errors.New("commission split does not conserve the payment total")
	ErrInvalidPayment     = errors.New("invalid payment for commission")
	ErrNoDestination      = errors.New("photographer has no payout destination")
	ErrFailedToTransfer   = errors.New("failed to transfer commission")
)
