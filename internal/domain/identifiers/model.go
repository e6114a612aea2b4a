// Package identifiers provides strictly one-way consumption of unique
// identifiers from pre-loaded pools. Unlike the numbers pools, an identifier
// is never fabricated and never returns to the pool once consumed.
package identifiers

import (
	"time"

	"refnum/internal/core/id"
	"refnum/internal/core/scope"
)

// Record is one identifier in a pre-loaded pool.
// A nil ConsumedAt means the identifier is still available; consumption is the
// one-way transition nil -> timestamp.
type Record struct {
	ID          id.ID             `db:"id"`
	Type        string            `db:"identifier_type"`
	TenantID    id.ID             `db:"tenant_id"`
	ProductID   id.ID             `db:"product_id"`
	Environment scope.Environment `db:"environment"`
	Identifier  string            `db:"identifier"`
	ConsumedAt  *time.Time        `db:"consumed_at"`
	CreatedAt   time.Time         `db:"created_at"`
}

// NewRecord creates an available pool record.
func NewRecord(identifierType string, sc scope.Scope, identifier string) *Record {
	return &Record{
		ID:          id.New(),
		Type:        identifierType,
		TenantID:    sc.TenantID,
		ProductID:   sc.ProductID,
		Environment: sc.Environment,
		Identifier:  identifier,
		CreatedAt:   time.Now().UTC(),
	}
}

// Scope returns the record's uniqueness scope.
func (r *Record) Scope() scope.Scope {
	return scope.Scope{
		TenantID:    r.TenantID,
		ProductID:   r.ProductID,
		Environment: r.Environment,
	}
}

// IsAvailable reports whether the identifier has not been consumed yet.
func (r *Record) IsAvailable() bool {
	return r.ConsumedAt == nil
}
