package driving

import (
	"context"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// IndexAdmin exposes index management to operators.
type IndexAdmin interface {
	// ReindexAll rebuilds both indexes from the snippet store and
	// returns the resulting stats. Searches keep working throughout.
	ReindexAll(ctx context.Context) (domain.IndexStats, error)

	// Stats reports current index and store counts.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
