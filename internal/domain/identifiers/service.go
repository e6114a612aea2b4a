package identifiers

import (
	"context"
	"time"

	"refnum/internal/core/apperror"
	"refnum/internal/core/scope"
	"refnum/internal/core/tx"
	"refnum/pkg/logger"
)

// Service consumes identifiers from pre-loaded pools and loads new pools.
type Service struct {
	repo      Repository
	txManager tx.Manager
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates the identifier pool service.
func NewService(repo Repository, txManager tx.Manager, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		log:       log.WithComponent("identifier-pool"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Consume takes exactly one identifier from the pool and returns it.
//
// Losing the guarded update to a concurrent consumer just means that record is
// gone; the loop picks the next available one. Every lost round is another
// caller's success, so the loop terminates: either a record is won or the pool
// drains to the POOL_EXHAUSTED error naming the full scope.
func (s *Service) Consume(ctx context.Context, identifierType string, sc scope.Scope) (string, error) {
	if err := sc.Validate(); err != nil {
		return "", apperror.NewValidation(err.Error())
	}

	for {
		rec, err := s.repo.FindAvailable(ctx, identifierType, sc)
		if err != nil {
			return "", err
		}
		if rec == nil {
			return "", apperror.NewPoolExhausted(
				identifierType, sc.TenantID.String(), sc.ProductID.String(), int(sc.Environment))
		}

		consumedAt := s.now()
		rec.ConsumedAt = &consumedAt
		won, err := s.repo.MarkConsumed(ctx, rec)
		if err != nil {
			return "", err
		}
		if won {
			s.log.Debugw("consumed identifier",
				"type", identifierType, "scope", sc.String(), "identifier", rec.Identifier)
			return rec.Identifier, nil
		}
	}
}

// LoadPool bulk-inserts available identifiers for the scope, all-or-nothing.
// A collision with an existing identifier rejects the entire batch and names
// the offending value so the operator can fix the input set.
func (s *Service) LoadPool(ctx context.Context, identifierType string, sc scope.Scope, identifiers []string) error {
	if err := sc.Validate(); err != nil {
		return apperror.NewValidation(err.Error())
	}
	if len(identifiers) == 0 {
		return apperror.NewValidation("identifier batch is empty")
	}

	recs := make([]*Record, 0, len(identifiers))
	seen := make(map[string]struct{}, len(identifiers))
	for _, ident := range identifiers {
		if ident == "" {
			return apperror.NewValidation("identifier batch contains an empty value")
		}
		if _, dup := seen[ident]; dup {
			return apperror.NewBulkLoadCollision(ident)
		}
		seen[ident] = struct{}{}
		recs = append(recs, NewRecord(identifierType, sc, ident))
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateBatch(ctx, recs)
	})
	if err != nil {
		return err
	}

	s.log.Infow("loaded identifier pool",
		"type", identifierType, "scope", sc.String(), "count", len(recs))
	return nil
}

// ListAvailable enumerates the identifiers still available in scope, for
// operator visibility.
func (s *Service) ListAvailable(ctx context.Context, identifierType string, sc scope.Scope) ([]string, error) {
	if err := sc.Validate(); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	return s.repo.ListAvailable(ctx, identifierType, sc)
}
