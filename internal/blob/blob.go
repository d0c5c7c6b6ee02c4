// Package blob defines the durable string store the rating store persists to.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("blob not found")

// Store is a string-keyed durable store holding opaque string values.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
