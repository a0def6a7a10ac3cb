package payment

import "errors"

var (
	ErrInvalidSignature     = errors.New("webhook signature verification failed")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
	ErrInvalidRequest       = errors.New("invalid billing request")
	ErrInvalidConfig        = errors.New("invalid billing provider configuration")
	ErrProviderUnavailable  = errors.New("billing provider request failed")
	ErrUnsupportedOperation = errors.New("operation not supported by billing provider")
)
