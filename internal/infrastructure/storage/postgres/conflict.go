package postgres

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"refnum/internal/core/scope"
)

// ConflictMatch is the result of classifying a uniqueness-constraint
// violation. Succeeded reports whether the violation belongs to this
// subsystem's (tenant, product, environment, number) constraint; when true,
// Number carries the contended value.
type ConflictMatch struct {
	Succeeded bool
	Number    string
}

// TranslateUniqueViolation inspects the raw text of a uniqueness violation
// and, when it structurally matches the composite scope key, extracts the
// contended number.
//
// PostgreSQL renders the violated key as
//
//	Key (tenant_id, product_id, environment, number)=(t, p, 2, P-9999) already exists.
//
// so the scope fixes everything up to the number, which runs to the closing
// parenthesis. Pure function: no I/O, and malformed input yields
// Succeeded=false rather than a panic. A non-match means the violation is
// unrelated and the caller must propagate the original error unchanged.
func TranslateUniqueViolation(sc scope.Scope, message string) ConflictMatch {
	if message == "" {
		return ConflictMatch{}
	}

	needle := "=(" + sc.TenantID.String() + ", " + sc.ProductID.String() + ", " +
		strconv.Itoa(int(sc.Environment)) + ", "

	start := strings.Index(message, needle)
	if start < 0 {
		return ConflictMatch{}
	}

	rest := message[start+len(needle):]
	end := strings.Index(rest, ")")
	if end <= 0 {
		return ConflictMatch{}
	}

	return ConflictMatch{Succeeded: true, Number: rest[:end]}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// TranslateConflict classifies err against the scope's composite uniqueness
// constraint. Succeeded is false for nil errors, non-unique-violations and
// violations of unrelated constraints; repositories must then propagate the
// original error untouched.
func TranslateConflict(sc scope.Scope, err error) ConflictMatch {
	if err == nil || !IsUniqueViolation(err) {
		return ConflictMatch{}
	}
	return TranslateUniqueViolation(sc, violationText(err))
}

// violationText returns the part of a pg error that carries the violated key
// rendering. The Detail field holds the "Key (...)=(...) already exists."
// line; fall back to the message for stores that omit detail.
func violationText(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	if pgErr.Detail != "" {
		return pgErr.Detail
	}
	return pgErr.Message
}
