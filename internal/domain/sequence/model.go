// Package sequence provides monotonically increasing, gap-tolerant integer
// counters per (scope, use-case). Each allocation inserts a fresh counter row;
// the current value is max over the scope, never mutated in place.
package sequence

import (
	"time"

	"refnum/internal/core/id"
	"refnum/internal/core/scope"
)

// Counter is one issued value of a scoped sequence.
// (tenant, product, environment, use_case, number) is unique, which is what
// turns the read-max-then-insert race into a visible conflict instead of a
// duplicate value.
type Counter struct {
	ID          id.ID             `db:"id"`
	TenantID    id.ID             `db:"tenant_id"`
	ProductID   id.ID             `db:"product_id"`
	Environment scope.Environment `db:"environment"`
	UseCase     string            `db:"use_case"`
	Number      int64             `db:"number"`
	CreatedAt   time.Time         `db:"created_at"`
}

// NewCounter creates a counter row for the next issued value.
func NewCounter(sc scope.Scope, useCase string, number int64) *Counter {
	return &Counter{
		ID:          id.New(),
		TenantID:    sc.TenantID,
		ProductID:   sc.ProductID,
		Environment: sc.Environment,
		UseCase:     useCase,
		Number:      number,
		CreatedAt:   time.Now().UTC(),
	}
}
