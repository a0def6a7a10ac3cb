package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")
	ErrInvalidConnURL     = errors.New("redis: invalid connection URL")
	ErrNotReady           = errors.New("redis: server did not answer PING before the deadline")

	// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
	ErrCacheMiss = errors.New("redis: cache miss")
)
