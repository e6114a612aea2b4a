package numbers

import (
	"context"

	"refnum/internal/core/apperror"
	"refnum/internal/core/scope"
	"refnum/pkg/logger"
)

// Allocator consumes and releases numbers of one kind for a scope.
//
// Conflicts are surfaced to the caller, not retried internally: "find me any
// number" loops belong to the caller, bounded by its own attempt budget, so
// retry storms stay visible.
type Allocator struct {
	kind Kind
	repo Repository
	log  *logger.Logger
}

// NewAllocator creates an allocator for one number kind.
func NewAllocator(kind Kind, repo Repository, log *logger.Logger) *Allocator {
	return &Allocator{
		kind: kind,
		repo: repo,
		log:  log.WithComponent(kind.Name + "-allocator"),
	}
}

// Kind returns the number kind this allocator serves.
func (a *Allocator) Kind() Kind {
	return a.kind
}

// Consume claims a number for the scope and returns it.
//
// With a non-empty candidate, the matching available pool record is consumed
// if present (replaying a prior reservation); otherwise, when the kind allows
// fabrication, a brand-new assigned record is created for the candidate. With
// an empty candidate any available record is consumed.
//
// A concurrent writer claiming the same number surfaces as
// apperror.CodeNumberTaken carrying the contended value.
func (a *Allocator) Consume(ctx context.Context, sc scope.Scope, candidate string) (string, error) {
	if err := sc.Validate(); err != nil {
		return "", apperror.NewValidation(err.Error())
	}

	rec, err := a.repo.FindAvailable(ctx, sc, candidate)
	if err != nil {
		return "", err
	}

	if rec != nil {
		rec.IsAssigned = true
		won, err := a.repo.Update(ctx, rec)
		if err != nil {
			return "", err
		}
		if !won {
			// A concurrent consumer claimed the record between the read and
			// the guarded write.
			a.log.Warnw("number contention", "scope", sc.String(), "number", rec.Number)
			return "", apperror.NewNumberTaken(rec.Number)
		}
		a.log.Debugw("consumed pool number", "scope", sc.String(), "number", rec.Number)
		return rec.Number, nil
	}

	if !a.kind.AllowFabrication {
		return "", apperror.NewPoolExhausted(
			a.kind.Name, sc.TenantID.String(), sc.ProductID.String(), int(sc.Environment))
	}
	if candidate == "" {
		return "", apperror.NewValidation("candidate number is required to fabricate a " + a.kind.Name + " number")
	}

	fresh := NewRecord(sc, candidate, true)
	if err := a.repo.Create(ctx, fresh); err != nil {
		if apperror.IsNumberTaken(err) {
			a.log.Warnw("number contention", "scope", sc.String(), "number", candidate)
		}
		return "", err
	}
	a.log.Debugw("fabricated number", "scope", sc.String(), "number", candidate)
	return candidate, nil
}

// Unconsume returns an assigned number to the pool.
// Idempotent: a missing or already-available record is a no-op, because
// rollback paths may release the same number more than once.
func (a *Allocator) Unconsume(ctx context.Context, sc scope.Scope, number string) error {
	if err := sc.Validate(); err != nil {
		return apperror.NewValidation(err.Error())
	}

	rec, err := a.repo.FindAssigned(ctx, sc, number)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	rec.IsAssigned = false
	won, err := a.repo.Update(ctx, rec)
	if err != nil {
		return err
	}
	if !won {
		// A concurrent rollback path released it first.
		return nil
	}
	a.log.Debugw("released number", "scope", sc.String(), "number", number)
	return nil
}

// Delete permanently removes an assigned number so it cannot return to the
// shared pool. Used for abandoned one-off fabrications. No-op when absent.
func (a *Allocator) Delete(ctx context.Context, sc scope.Scope, number string) error {
	if err := sc.Validate(); err != nil {
		return apperror.NewValidation(err.Error())
	}

	rec, err := a.repo.FindAssigned(ctx, sc, number)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	if err := a.repo.Delete(ctx, rec.ID); err != nil {
		return err
	}
	a.log.Debugw("deleted number", "scope", sc.String(), "number", number)
	return nil
}
