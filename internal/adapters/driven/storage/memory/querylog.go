package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
)

// Ensure QueryLog implements the interface.
var _ driven.QueryLog = (*QueryLog)(nil)

// defaultQueryLogCap bounds retained records; oldest are dropped first.
const defaultQueryLogCap = 1000

// QueryLog is an in-memory implementation of driven.QueryLog.
type QueryLog struct {
	mu      sync.Mutex
	records []domain.QueryRecord
	cap     int
}

// NewQueryLog creates a new in-memory query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{cap: defaultQueryLogCap}
}

// Record appends one analytics row, evicting the oldest when full.
func (l *QueryLog) Record(_ context.Context, record domain.QueryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	if len(l.records) > l.cap {
		excess := len(l.records) - l.cap
		l.records = append(l.records[:0], l.records[excess:]...)
	}
	return nil
}

// Recent returns the most recent records, newest first.
func (l *QueryLog) Recent(_ context.Context, limit int) ([]domain.QueryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]domain.QueryRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.records[len(l.records)-1-i]
	}
	return out, nil
}

// Close releases resources.
func (l *QueryLog) Close() error {
	return nil
}
