package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refnum/internal/core/id"
	"refnum/internal/core/scope"
)

func testScope(t *testing.T) scope.Scope {
	t.Helper()
	return scope.New(
		id.MustParse("0192aa3e-3c1f-7aaa-9d52-111111111111"),
		id.MustParse("0192aa3e-3c1f-7bbb-9d52-222222222222"),
		scope.Production,
	)
}

func violationDetail(sc scope.Scope, number string) string {
	return fmt.Sprintf(
		"Key (tenant_id, product_id, environment, number)=(%s, %s, %d, %s) already exists.",
		sc.TenantID, sc.ProductID, int(sc.Environment), number)
}

func TestTranslateUniqueViolation_Match(t *testing.T) {
	sc := testScope(t)

	m := TranslateUniqueViolation(sc, violationDetail(sc, "P-9999"))

	require.True(t, m.Succeeded)
	assert.Equal(t, "P-9999", m.Number)
}

func TestTranslateUniqueViolation_UnrelatedMessage(t *testing.T) {
	sc := testScope(t)

	m := TranslateUniqueViolation(sc, `Key (email)=(bob@example.com) already exists.`)

	assert.False(t, m.Succeeded)
	assert.Empty(t, m.Number)
}

func TestTranslateUniqueViolation_DifferentScope(t *testing.T) {
	sc := testScope(t)
	other := scope.New(sc.TenantID, sc.ProductID, scope.Staging)

	// Same tenant and product but a different environment must not match.
	m := TranslateUniqueViolation(other, violationDetail(sc, "P-9999"))

	assert.False(t, m.Succeeded)
}

func TestTranslateUniqueViolation_MalformedInput(t *testing.T) {
	sc := testScope(t)

	for _, msg := range []string{
		"",
		"garbage",
		// key prefix present but truncated before the closing parenthesis
		fmt.Sprintf("=(%s, %s, %d, P-1", sc.TenantID, sc.ProductID, int(sc.Environment)),
	} {
		m := TranslateUniqueViolation(sc, msg)
		assert.False(t, m.Succeeded, "input %q must not match", msg)
	}
}

func TestTranslateConflict(t *testing.T) {
	sc := testScope(t)

	pgErr := &pgconn.PgError{
		Code:   "23505",
		Detail: violationDetail(sc, "C-42"),
	}
	wrapped := fmt.Errorf("insert num_claim_numbers: %w", pgErr)

	m := TranslateConflict(sc, wrapped)
	require.True(t, m.Succeeded)
	assert.Equal(t, "C-42", m.Number)
}

func TestTranslateConflict_NotUniqueViolation(t *testing.T) {
	sc := testScope(t)

	assert.False(t, TranslateConflict(sc, nil).Succeeded)
	assert.False(t, TranslateConflict(sc, errors.New("connection refused")).Succeeded)

	// Foreign key violation carries the right shape but the wrong SQLSTATE.
	fkErr := &pgconn.PgError{Code: "23503", Detail: violationDetail(sc, "P-1")}
	assert.False(t, TranslateConflict(sc, fkErr).Succeeded)
}

func TestTranslateConflict_MessageFallback(t *testing.T) {
	sc := testScope(t)

	// Some stores put the key rendering in the message with no detail line.
	pgErr := &pgconn.PgError{
		Code:    "23505",
		Message: "duplicate key " + violationDetail(sc, "IN-7"),
	}

	m := TranslateConflict(sc, pgErr)
	require.True(t, m.Succeeded)
	assert.Equal(t, "IN-7", m.Number)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
