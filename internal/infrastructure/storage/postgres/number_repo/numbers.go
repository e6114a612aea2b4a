// Package number_repo provides PostgreSQL implementations for the allocation
// repositories. One generic record repository serves the four number kind
// tables; identifier pools and sequence counters have their own.
//
// Every table carries a composite uniqueness constraint on
// (tenant_id, product_id, environment, <value>) so that concurrent writers
// racing for the same value lose with a visible violation.
package number_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"refnum/internal/core/apperror"
	"refnum/internal/core/id"
	"refnum/internal/core/scope"
	"refnum/internal/domain/numbers"
	"refnum/internal/infrastructure/storage/postgres"
)

var recordCols = []string{
	"id", "tenant_id", "product_id", "environment", "number", "is_assigned", "created_at",
}

// RecordRepo is the pool store for one number kind.
type RecordRepo struct {
	tableName string
	txManager *postgres.TxManager
}

// Compile-time check against the domain contract.
var _ numbers.Repository = (*RecordRepo)(nil)

func newRecordRepo(tableName string, txManager *postgres.TxManager) *RecordRepo {
	return &RecordRepo{tableName: tableName, txManager: txManager}
}

// NewPolicyRepo creates the policy number repository.
func NewPolicyRepo(txManager *postgres.TxManager) *RecordRepo {
	return newRecordRepo("num_policy_numbers", txManager)
}

// NewClaimRepo creates the claim number repository.
func NewClaimRepo(txManager *postgres.TxManager) *RecordRepo {
	return newRecordRepo("num_claim_numbers", txManager)
}

// NewCreditNoteRepo creates the credit note number repository.
func NewCreditNoteRepo(txManager *postgres.TxManager) *RecordRepo {
	return newRecordRepo("num_credit_note_numbers", txManager)
}

// NewInvoiceRepo creates the invoice number repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *RecordRepo {
	return newRecordRepo("num_invoice_numbers", txManager)
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *RecordRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *RecordRepo) scopeEq(sc scope.Scope) squirrel.Eq {
	return squirrel.Eq{
		"tenant_id":   sc.TenantID,
		"product_id":  sc.ProductID,
		"environment": int(sc.Environment),
	}
}

func (r *RecordRepo) findOne(ctx context.Context, q squirrel.SelectBuilder) (*numbers.Record, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := &numbers.Record{}
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return rec, nil
}

// FindAvailable returns an available record in scope, oldest first.
// A non-empty number restricts the match to that exact value.
func (r *RecordRepo) FindAvailable(ctx context.Context, sc scope.Scope, number string) (*numbers.Record, error) {
	q := r.Builder().
		Select(recordCols...).
		From(r.tableName).
		Where(r.scopeEq(sc)).
		Where(squirrel.Eq{"is_assigned": false}).
		OrderBy("created_at ASC").
		Limit(1)
	if number != "" {
		q = q.Where(squirrel.Eq{"number": number})
	}
	return r.findOne(ctx, q)
}

// FindAssigned returns the assigned record holding number in scope.
func (r *RecordRepo) FindAssigned(ctx context.Context, sc scope.Scope, number string) (*numbers.Record, error) {
	q := r.Builder().
		Select(recordCols...).
		From(r.tableName).
		Where(r.scopeEq(sc)).
		Where(squirrel.Eq{"is_assigned": true, "number": number}).
		Limit(1)
	return r.findOne(ctx, q)
}

// FindByNumber returns the record holding number in scope, any state.
func (r *RecordRepo) FindByNumber(ctx context.Context, sc scope.Scope, number string) (*numbers.Record, error) {
	q := r.Builder().
		Select(recordCols...).
		From(r.tableName).
		Where(r.scopeEq(sc)).
		Where(squirrel.Eq{"number": number}).
		Limit(1)
	return r.findOne(ctx, q)
}

// Create inserts a new record. A violation of the scope uniqueness constraint
// becomes NUMBER_ALREADY_ASSIGNED carrying the contended number; unrelated
// violations propagate unchanged.
func (r *RecordRepo) Create(ctx context.Context, rec *numbers.Record) error {
	q := r.Builder().
		Insert(r.tableName).
		Columns(recordCols...).
		Values(rec.ID, rec.TenantID, rec.ProductID, int(rec.Environment),
			rec.Number, rec.IsAssigned, rec.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.mapWriteError(rec.Scope(), err, "insert")
	}
	return nil
}

// Update persists the assignment state as a compare-and-set on the prior
// state. Two consumers can read the same available row; only the first guarded
// write matches, the second affects zero rows and reports won=false. The same
// conflict mapping applies: assigning a number another row already holds trips
// the partial unique index.
func (r *RecordRepo) Update(ctx context.Context, rec *numbers.Record) (bool, error) {
	q := r.Builder().
		Update(r.tableName).
		Set("is_assigned", rec.IsAssigned).
		Where(squirrel.Eq{"id": rec.ID, "is_assigned": !rec.IsAssigned})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, r.mapWriteError(rec.Scope(), err, "update")
	}
	return result.RowsAffected() == 1, nil
}

// Delete permanently removes the record. Absent rows are a no-op.
func (r *RecordRepo) Delete(ctx context.Context, recordID id.ID) error {
	q := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": recordID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	return nil
}

func (r *RecordRepo) mapWriteError(sc scope.Scope, err error, op string) error {
	if m := postgres.TranslateConflict(sc, err); m.Succeeded {
		return apperror.NewNumberTaken(m.Number).WithCause(err)
	}
	return fmt.Errorf("%s %s: %w", op, r.tableName, err)
}
