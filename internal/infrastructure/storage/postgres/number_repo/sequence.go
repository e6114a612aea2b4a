package number_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"refnum/internal/core/apperror"
	"refnum/internal/core/scope"
	"refnum/internal/domain/sequence"
	"refnum/internal/infrastructure/storage/postgres"
)

// SequenceRepo is the store for sequence counter rows.
type SequenceRepo struct {
	txManager *postgres.TxManager
}

var _ sequence.Repository = (*SequenceRepo)(nil)

const sequenceTable = "num_sequence_counters"

// NewSequenceRepo creates the sequence counter repository.
func NewSequenceRepo(txManager *postgres.TxManager) *SequenceRepo {
	return &SequenceRepo{txManager: txManager}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *SequenceRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// MaxNumber returns the highest issued number for the scope and use-case,
// -1 when the scope has issued nothing yet.
func (r *SequenceRepo) MaxNumber(ctx context.Context, sc scope.Scope, useCase string) (int64, error) {
	q := r.Builder().
		Select("COALESCE(MAX(number), -1)").
		From(sequenceTable).
		Where(squirrel.Eq{
			"tenant_id":   sc.TenantID,
			"product_id":  sc.ProductID,
			"environment": int(sc.Environment),
			"use_case":    useCase,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var max int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&max); err != nil {
		return 0, fmt.Errorf("select max %s: %w", sequenceTable, err)
	}
	return max, nil
}

// Create inserts a counter row. The unique index on
// (tenant_id, product_id, environment, use_case, number) turns a lost
// read-then-insert race into SEQUENCE_CONFLICT; the caller re-reads the max
// and retries.
func (r *SequenceRepo) Create(ctx context.Context, c *sequence.Counter) error {
	q := r.Builder().
		Insert(sequenceTable).
		Columns("id", "tenant_id", "product_id", "environment", "use_case", "number", "created_at").
		Values(c.ID, c.TenantID, c.ProductID, int(c.Environment), c.UseCase, c.Number, c.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewSequenceConflict(c.UseCase, c.Number).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", sequenceTable, err)
	}
	return nil
}
