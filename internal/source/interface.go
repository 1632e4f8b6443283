package source

import (
	"context"

	"github.com/timmy/fitetl/internal/domain"
)

// TabularSource reads the raw dataset of a kind in full.
type TabularSource interface {
	// SourceID returns a stable identifier such as "local:./data".
	SourceID() string

	// Read loads every row of the kind's file.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - kind: dataset kind to read.
	// Returns:
	//   - *domain.Dataset: rows in descriptor source-column order; empty cells are nil.
	//   - error: non-nil if the file is missing, unreadable or lacks columns.
	Read(ctx context.Context, kind domain.Kind) (*domain.Dataset, error)
}

// Files maps each dataset kind to its file name or object key.
type Files map[domain.Kind]string
