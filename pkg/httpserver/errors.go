package httpserver

import "errors"

var (
	// ErrStart wraps listen and serve failures.
	ErrStart = errors.New("httpserver: listen or serve failed")
	// ErrShutdown is returned when in-flight requests outlive the shutdown timeout.
	ErrShutdown = errors.New("httpserver: graceful shutdown did not complete")
)
