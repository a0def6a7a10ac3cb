package account

import "errors"

var (
	ErrNotFound           = errors.New("account not found")
	ErrAlreadyExists      = errors.New("account already exists")
	ErrVersionConflict    = errors.New("account was modified concurrently")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidTrigger     = errors.New("trigger not permitted in current state")
	ErrFailedToTransition = errors.New("failed to transition account")
)
