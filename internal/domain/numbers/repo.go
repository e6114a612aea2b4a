package numbers

import (
	"context"

	"refnum/internal/core/id"
	"refnum/internal/core/scope"
)

// Repository defines persistence for one number kind's pool.
//
// Lookup methods return (nil, nil) when no record matches; absence is not an
// error at this layer. Create and Update must enforce the scope uniqueness
// constraint for assigned numbers and surface a violation as
// apperror.CodeNumberTaken carrying the contended number.
type Repository interface {
	// FindAvailable returns an available record in scope. With a non-empty
	// number only that exact number matches; with an empty number any
	// available record is returned, oldest first.
	FindAvailable(ctx context.Context, sc scope.Scope, number string) (*Record, error)

	// FindAssigned returns the assigned record holding number in scope.
	FindAssigned(ctx context.Context, sc scope.Scope, number string) (*Record, error)

	// FindByNumber returns the record holding number in scope regardless of
	// assignment state.
	FindByNumber(ctx context.Context, sc scope.Scope, number string) (*Record, error)

	// Create inserts a new record.
	Create(ctx context.Context, rec *Record) error

	// Update persists an assignment state transition, guarded on the prior
	// state: the stored row must still hold the opposite of rec.IsAssigned.
	// Returns false when a concurrent writer flipped the row first and
	// nothing changed.
	Update(ctx context.Context, rec *Record) (bool, error)

	// Delete permanently removes the record.
	Delete(ctx context.Context, recordID id.ID) error
}
