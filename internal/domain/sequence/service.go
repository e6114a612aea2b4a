package sequence

import (
	"context"

	"refnum/internal/core/apperror"
	"refnum/internal/core/id"
	"refnum/internal/core/scope"
	"refnum/pkg/logger"
)

// Allocator issues the next integer of a per-scope sequence.
//
// Next is read-max-then-insert and is NOT atomic against a concurrent second
// reader. The insert is guarded by the scope uniqueness constraint, so the
// race surfaces as apperror.CodeSequenceConflict; callers retry with a fresh
// read of the max. The conflict is part of the contract, never hidden.
type Allocator struct {
	repo Repository
	log  *logger.Logger
}

// NewAllocator creates a sequence allocator.
func NewAllocator(repo Repository, log *logger.Logger) *Allocator {
	return &Allocator{
		repo: repo,
		log:  log.WithComponent("sequence"),
	}
}

// Next issues the next value for the scope and use-case.
// The first issued value of a fresh scope is 0.
func (a *Allocator) Next(ctx context.Context, sc scope.Scope, useCase string) (int64, error) {
	if err := sc.Validate(); err != nil {
		return 0, apperror.NewValidation(err.Error())
	}
	if useCase == "" {
		return 0, apperror.NewValidation("use case is required")
	}

	current, err := a.repo.MaxNumber(ctx, sc, useCase)
	if err != nil {
		return 0, err
	}

	next := current + 1
	if err := a.repo.Create(ctx, NewCounter(sc, useCase, next)); err != nil {
		if apperror.IsSequenceConflict(err) {
			a.log.Debugw("sequence contention",
				"scope", sc.String(), "use_case", useCase, "number", next)
		}
		return 0, err
	}
	return next, nil
}

// NextForTenant issues the next value of a tenant-level sequence (no product).
func (a *Allocator) NextForTenant(ctx context.Context, tenantID id.ID, env scope.Environment, useCase string) (int64, error) {
	return a.Next(ctx, scope.ForTenant(tenantID, env), useCase)
}
