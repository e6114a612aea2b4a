// Package scope defines the uniqueness domain for all allocated numbers.
// Every pool record, identifier and sequence counter is keyed by the
// (tenant, product, environment) triple.
package scope

import (
	"fmt"

	"refnum/internal/core/id"
)

// Environment represents the deployment environment of a scope.
// Stored as an integer; the values are part of the uniqueness key and of
// constraint-violation messages, so they must stay stable.
type Environment int

const (
	Development Environment = iota
	Staging
	Production
)

// String returns the human-readable environment name.
func (e Environment) String() string {
	switch e {
	case Development:
		return "development"
	case Staging:
		return "staging"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("environment(%d)", int(e))
	}
}

// IsValid reports whether e is one of the known environments.
func (e Environment) IsValid() bool {
	return e >= Development && e <= Production
}

// ParseEnvironment converts a name to an Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch s {
	case "development", "dev":
		return Development, nil
	case "staging", "stage":
		return Staging, nil
	case "production", "prod":
		return Production, nil
	default:
		return 0, fmt.Errorf("unknown environment %q", s)
	}
}

// Scope bounds uniqueness and pool membership.
// A tenant-level scope (no product) carries a nil ProductID.
type Scope struct {
	TenantID    id.ID
	ProductID   id.ID
	Environment Environment
}

// New creates a product-level scope.
func New(tenantID, productID id.ID, env Environment) Scope {
	return Scope{TenantID: tenantID, ProductID: productID, Environment: env}
}

// ForTenant creates a tenant-level scope (no product).
func ForTenant(tenantID id.ID, env Environment) Scope {
	return Scope{TenantID: tenantID, ProductID: id.Nil(), Environment: env}
}

// Validate checks the scope is usable as a uniqueness key.
func (s Scope) Validate() error {
	if id.IsNil(s.TenantID) {
		return fmt.Errorf("scope: tenant id is required")
	}
	if !s.Environment.IsValid() {
		return fmt.Errorf("scope: invalid environment %d", int(s.Environment))
	}
	return nil
}

// String renders the scope for logs and error details.
func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.TenantID, s.ProductID, s.Environment)
}
