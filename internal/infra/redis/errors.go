package redis

import "errors"

var (
	// ErrKeyNotFound is returned when a requested key does not exist.
	ErrKeyNotFound = errors.New("redis: key not found")

	// ErrCacheMiss is returned by Cache reads when the key is absent
	// or has expired.
	ErrCacheMiss = errors.New("cache: key not found")
)
