package sequence

import (
	"context"

	"refnum/internal/core/scope"
)

// Repository defines persistence for sequence counter rows.
type Repository interface {
	// MaxNumber returns the highest issued number for the scope and use-case,
	// or -1 when none has been issued yet.
	MaxNumber(ctx context.Context, sc scope.Scope, useCase string) (int64, error)

	// Create inserts a counter row. A uniqueness violation on the scope key
	// surfaces as apperror.CodeSequenceConflict.
	Create(ctx context.Context, c *Counter) error
}
