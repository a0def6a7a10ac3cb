package family

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("family member not found")
	ErrAlreadyMember    = errors.New("user is already a member of this account")
	ErrNotEligible      = errors.New("not eligible to take over billing")
	ErrAlreadyTakenOver = errors.New("billing already taken over")
	ErrInvalidRequest   = errors.New("invalid takeover request")
	ErrInvalidStatus    = errors.New("invalid member status change")
	// ErrPayerExists is returned by stores when another member of the
	// account already holds the payer flag.
	ErrPayerExists = errors.New("account already has a billing payer")
)

// AlreadyTakenOverError names the member who already pays for the account.
type AlreadyTakenOverError struct {
	AccountID   uuid.UUID
	PayerUserID uuid.UUID
	PayerName   string
}

func (e *AlreadyTakenOverError) Error() string {
	if e.PayerName != "" {
		return fmt.Sprintf("%s: %s is already paying for account %s", ErrAlreadyTakenOver, e.PayerName, e.AccountID)
	}
	return fmt.Sprintf("%s: account %s", ErrAlreadyTakenOver, e.AccountID)
}

func (e *AlreadyTakenOverError) Unwrap() error { return ErrAlreadyTakenOver }

// NotEligibleError carries the reason code.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string { return fmt.Sprintf("%s: %s", ErrNotEligible, e.Reason) }

func (e *NotEligibleError) Unwrap() error { return ErrNotEligible }
