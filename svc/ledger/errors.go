package ledger

import "errors"

var (
	ErrInvalidEvent  = errors.New("invalid event")
	ErrEventInFlight = errors.New("event is already being processed")
	ErrHandlerFailed = errors.New("event handler failed")
	ErrStoreFailure  = errors.New("processed event store failure")
)
