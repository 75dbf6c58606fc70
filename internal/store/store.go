// Package store is the opaque JSON blob store behind the shared
// document. Writes are whole-value replacements with no concurrency
// check: when both clients push inside the same window the later write
// fully wins. That is the accepted contract of this board, not a bug.
package store

import (
	"context"
	"errors"
)

// Fixed single-tenant keys; the store is not partitioned by identity.
const (
	StateKey         = "our-day-shared-state-v1"
	SubscriptionsKey = "our-day-push-subscriptions-v1"
)

// ErrNotConfigured is the permanent condition of a deployment without
// store credentials. Callers degrade to local-only mode instead of
// treating it as transient.
var ErrNotConfigured = errors.New("blob store is not configured")

// Store reads and replaces opaque JSON blobs by fixed key.
type Store interface {
	// Get returns the blob at key, or nil when nothing is stored.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the blob at key wholesale.
	Set(ctx context.Context, key string, value []byte) error
}

// Open picks a backend from the configured URLs: redis first, then
// postgres. Both empty means the deployment is unconfigured.
func Open(redisURL, postgresURL string) (Store, error) {
	if redisURL != "" {
		return NewRedis(redisURL)
	}
	if postgresURL != "" {
		return NewPostgres(postgresURL)
	}
	return nil, ErrNotConfigured
}
