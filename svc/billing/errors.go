package billing

import "errors"

var (
	ErrUnknownProvider = errors.New("unknown billing provider")
	ErrEmptyPayload    = errors.New("empty webhook payload")
)
