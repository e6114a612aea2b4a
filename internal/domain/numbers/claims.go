package numbers

import (
	"context"

	"refnum/internal/core/apperror"
	"refnum/internal/core/scope"
	"refnum/pkg/logger"
)

// ClaimAllocator layers re-numbering operations on top of the claim number
// pool, for versioned claims that need a different display number while
// preserving history.
type ClaimAllocator struct {
	*Allocator
}

// NewClaimAllocator creates the claim-specific allocator.
func NewClaimAllocator(repo Repository, log *logger.Logger) *ClaimAllocator {
	return &ClaimAllocator{Allocator: NewAllocator(Claim, repo, log)}
}

// AssignNumber claims newNumber for the scope: an existing record is marked
// assigned, otherwise a new assigned record is fabricated.
//
// oldNumber is not released here. The two numbers may need to coexist during
// the transition window; releasing the old one is the caller's explicit step
// via UnassignNumber or ReuseOldNumber. Callers needing both steps atomic run
// them inside tx.Manager.RunInTransaction.
func (c *ClaimAllocator) AssignNumber(ctx context.Context, sc scope.Scope, oldNumber, newNumber string) error {
	if err := sc.Validate(); err != nil {
		return apperror.NewValidation(err.Error())
	}
	if newNumber == "" {
		return apperror.NewValidation("new claim number is required")
	}

	rec, err := c.repo.FindByNumber(ctx, sc, newNumber)
	if err != nil {
		return err
	}

	if rec != nil {
		// Replaying an already-assigned transition is a no-op.
		if !rec.IsAssigned {
			rec.IsAssigned = true
			won, err := c.repo.Update(ctx, rec)
			if err != nil {
				return err
			}
			if !won {
				return apperror.NewNumberTaken(newNumber)
			}
		}
	} else {
		if err := c.repo.Create(ctx, NewRecord(sc, newNumber, true)); err != nil {
			return err
		}
	}

	c.log.Infow("claim renumbered", "scope", sc.String(), "old", oldNumber, "new", newNumber)
	return nil
}

// UnassignNumber retires oldNumber after a renumbering. A superseded claim
// number is deleted, not recycled. With restoreOld set nothing is deleted:
// the old number is being kept for restoration.
func (c *ClaimAllocator) UnassignNumber(ctx context.Context, sc scope.Scope, oldNumber string, restoreOld bool) error {
	if restoreOld {
		return nil
	}
	return c.Delete(ctx, sc, oldNumber)
}

// ReuseOldNumber returns a previously assigned claim number to service, used
// when an edit is cancelled and the original number must come back.
func (c *ClaimAllocator) ReuseOldNumber(ctx context.Context, sc scope.Scope, oldNumber string) error {
	return c.Unconsume(ctx, sc, oldNumber)
}
