// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// QueryLog records per-query analytics.
// This is an optional service - when nil, nothing is recorded. Failures
// to record are logged by callers and never surfaced to the end user.
type QueryLog interface {
	// Record appends one analytics row.
	Record(ctx context.Context, record domain.QueryRecord) error

	// Recent returns the most recent records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error)

	// Close releases resources.
	Close() error
}
