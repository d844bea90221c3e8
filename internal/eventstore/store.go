// Package eventstore records build history as an append-only event log.
package eventstore

import "context"

// Store persists build events.
type Store interface {
	Append(ctx context.Context, r Record) error
	// Events returns the records of one build in append order.
	Events(ctx context.Context, buildID string) ([]Record, error)
	// Recent returns the ids of the last n builds, newest first.
	Recent(ctx context.Context, n int) ([]string, error)
	// Prune drops every build except the newest keep and reports how many
	// builds were removed.
	Prune(ctx context.Context, keep int) (int, error)
	Close() error
}
