package identifiers

import (
	"context"

	"refnum/internal/core/scope"
)

// Repository defines persistence for identifier pools.
type Repository interface {
	// FindAvailable returns one unconsumed record for the type and scope,
	// oldest first, or (nil, nil) when the pool is empty.
	FindAvailable(ctx context.Context, identifierType string, sc scope.Scope) (*Record, error)

	// MarkConsumed stamps ConsumedAt on the record, guarded so only an
	// unconsumed row is touched. Returns false when a concurrent consumer
	// won the race for this record.
	MarkConsumed(ctx context.Context, rec *Record) (bool, error)

	// CreateBatch inserts all records. A uniqueness collision on
	// (tenant, product, environment, identifier) fails the whole batch with
	// apperror.CodeBulkLoadCollision naming the offending identifier.
	CreateBatch(ctx context.Context, recs []*Record) error

	// ListAvailable enumerates currently available identifiers in scope.
	ListAvailable(ctx context.Context, identifierType string, sc scope.Scope) ([]string, error)
}
