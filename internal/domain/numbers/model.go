// Package numbers provides race-safe allocation of business reference numbers
// (policy, claim, credit note, invoice) from per-scope pools.
//
// A number is unique within its scope while assigned. Correctness under
// concurrent writers is delegated to the store's composite uniqueness
// constraint: the losing writer observes a typed conflict, never a silent
// duplicate. No client-side locking is used.
package numbers

import (
	"fmt"
	"time"

	"refnum/internal/core/id"
	"refnum/internal/core/scope"
)

// Record is one number in a pool.
// While IsAssigned is true, (tenant, product, environment, number) is unique;
// available records are undifferentiated pool entries.
type Record struct {
	ID          id.ID             `db:"id"`
	TenantID    id.ID             `db:"tenant_id"`
	ProductID   id.ID             `db:"product_id"`
	Environment scope.Environment `db:"environment"`
	Number      string            `db:"number"`
	IsAssigned  bool              `db:"is_assigned"`
	CreatedAt   time.Time         `db:"created_at"`
}

// NewRecord creates a pool record in the given scope.
func NewRecord(sc scope.Scope, number string, assigned bool) *Record {
	return &Record{
		ID:          id.New(),
		TenantID:    sc.TenantID,
		ProductID:   sc.ProductID,
		Environment: sc.Environment,
		Number:      number,
		IsAssigned:  assigned,
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

// Kind describes one number variant. The four variants share identical
// allocation logic and differ only in display prefix and whether a missing
// number may be fabricated on demand instead of drawn from the pool.
type Kind struct {
	// Name identifies the kind in logs and errors ("policy", "claim", ...)
	Name string

	// Prefix is the fixed display prefix ("P-", "C-", ...)
	Prefix string

	// AllowFabrication permits Consume to create a brand-new assigned record
	// when no available pool entry matches.
	AllowFabrication bool
}

// The supported number kinds. Fabrication is allowed for all of them;
// pre-loaded pools that must never fabricate use the identifiers service.
var (
	Policy     = Kind{Name: "policy", Prefix: "P-", AllowFabrication: true}
	Claim      = Kind{Name: "claim", Prefix: "C-", AllowFabrication: true}
	CreditNote = Kind{Name: "credit note", Prefix: "CN-", AllowFabrication: true}
	Invoice    = Kind{Name: "invoice", Prefix: "IN-", AllowFabrication: true}
)

// Format renders a numeral as a display number for this kind, e.g.
// Policy.Format(1000) == "P-1000".
func (k Kind) Format(n int64) string {
	return fmt.Sprintf("%s%d", k.Prefix, n)
}
