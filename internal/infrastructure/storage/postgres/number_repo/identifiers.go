package number_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"refnum/internal/core/apperror"
	"refnum/internal/core/scope"
	"refnum/internal/domain/identifiers"
	"refnum/internal/infrastructure/storage/postgres"
)

var identifierCols = []string{
	"id", "identifier_type", "tenant_id", "product_id", "environment",
	"identifier", "consumed_at", "created_at",
}

// IdentifierRepo is the store for pre-loaded identifier pools.
type IdentifierRepo struct {
	txManager *postgres.TxManager
}

var _ identifiers.Repository = (*IdentifierRepo)(nil)

const identifierTable = "num_identifiers"

// NewIdentifierRepo creates the identifier pool repository.
func NewIdentifierRepo(txManager *postgres.TxManager) *IdentifierRepo {
	return &IdentifierRepo{txManager: txManager}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *IdentifierRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *IdentifierRepo) poolEq(identifierType string, sc scope.Scope) squirrel.Eq {
	return squirrel.Eq{
		"identifier_type": identifierType,
		"tenant_id":       sc.TenantID,
		"product_id":      sc.ProductID,
		"environment":     int(sc.Environment),
	}
}

// FindAvailable returns one unconsumed record, oldest first, or nil.
func (r *IdentifierRepo) FindAvailable(ctx context.Context, identifierType string, sc scope.Scope) (*identifiers.Record, error) {
	q := r.Builder().
		Select(identifierCols...).
		From(identifierTable).
		Where(r.poolEq(identifierType, sc)).
		Where("consumed_at IS NULL").
		OrderBy("created_at ASC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := &identifiers.Record{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", identifierTable, err)
	}
	return rec, nil
}

// MarkConsumed stamps ConsumedAt, guarded on the row still being unconsumed.
// Returns false when a concurrent consumer already took the record.
func (r *IdentifierRepo) MarkConsumed(ctx context.Context, rec *identifiers.Record) (bool, error) {
	q := r.Builder().
		Update(identifierTable).
		Set("consumed_at", rec.ConsumedAt).
		Where(squirrel.Eq{"id": rec.ID}).
		Where("consumed_at IS NULL")

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", identifierTable, err)
	}
	return result.RowsAffected() == 1, nil
}

// CreateBatch inserts all records in one statement. The surrounding
// transaction (tx.Manager in the service) makes the batch all-or-nothing; a
// uniqueness collision surfaces the offending identifier as
// BULK_LOAD_COLLISION.
func (r *IdentifierRepo) CreateBatch(ctx context.Context, recs []*identifiers.Record) error {
	if len(recs) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(identifierTable).
		Columns(identifierCols...)
	for _, rec := range recs {
		q = q.Values(rec.ID, rec.Type, rec.TenantID, rec.ProductID,
			int(rec.Environment), rec.Identifier, rec.ConsumedAt, rec.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if m := postgres.TranslateConflict(recs[0].Scope(), err); m.Succeeded {
			return apperror.NewBulkLoadCollision(m.Number).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", identifierTable, err)
	}
	return nil
}

// ListAvailable enumerates available identifiers in scope, oldest first.
func (r *IdentifierRepo) ListAvailable(ctx context.Context, identifierType string, sc scope.Scope) ([]string, error) {
	q := r.Builder().
		Select("identifier").
		From(identifierTable).
		Where(r.poolEq(identifierType, sc)).
		Where("consumed_at IS NULL").
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var idents []string
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &idents, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", identifierTable, err)
	}
	return idents, nil
}
