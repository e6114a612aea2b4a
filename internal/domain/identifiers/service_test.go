package identifiers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refnum/internal/core/apperror"
	"refnum/internal/core/id"
	"refnum/internal/core/scope"
	"refnum/pkg/logger"
)

// passthroughTx runs fn directly; batch atomicity itself is the store's
// concern and exercised via the repo fake's all-or-nothing CreateBatch.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	mu   sync.Mutex
	recs []*Record
	// consumeLosses forces MarkConsumed to lose the next N races
	consumeLosses int
}

func poolKey(r *Record) string {
	return r.TenantID.String() + "|" + r.ProductID.String() + "|" +
		r.Environment.String() + "|" + r.Identifier
}

func (f *fakeRepo) FindAvailable(ctx context.Context, identifierType string, sc scope.Scope) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.Type == identifierType && r.Scope() == sc && r.IsAvailable() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) MarkConsumed(ctx context.Context, rec *Record) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.ID == rec.ID {
			if !r.IsAvailable() {
				return false, nil
			}
			if f.consumeLosses > 0 {
				f.consumeLosses--
				now := *rec.ConsumedAt
				r.ConsumedAt = &now // raced consumer won
				return false, nil
			}
			r.ConsumedAt = rec.ConsumedAt
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateBatch(ctx context.Context, recs []*Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := make(map[string]struct{}, len(f.recs))
	for _, r := range f.recs {
		existing[poolKey(r)] = struct{}{}
	}
	for _, rec := range recs {
		if _, dup := existing[poolKey(rec)]; dup {
			return apperror.NewBulkLoadCollision(rec.Identifier)
		}
		existing[poolKey(rec)] = struct{}{}
	}
	for _, rec := range recs {
		cp := *rec
		f.recs = append(f.recs, &cp)
	}
	return nil
}

func (f *fakeRepo) ListAvailable(ctx context.Context, identifierType string, sc scope.Scope) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var idents []string
	for _, r := range f.recs {
		if r.Type == identifierType && r.Scope() == sc && r.IsAvailable() {
			idents = append(idents, r.Identifier)
		}
	}
	return idents, nil
}

func newService(repo *fakeRepo) *Service {
	return NewService(repo, passthroughTx{}, logger.Nop())
}

func newScope() scope.Scope {
	return scope.New(id.New(), id.New(), scope.Production)
}

const greenCard = "green-card"

func TestLoadPoolAndConsume(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)
	sc := newScope()

	require.NoError(t, svc.LoadPool(context.Background(), greenCard, sc, []string{"GC-1", "GC-2"}))

	first, err := svc.Consume(context.Background(), greenCard, sc)
	require.NoError(t, err)
	second, err := svc.Consume(context.Background(), greenCard, sc)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"GC-1", "GC-2"}, []string{first, second})
}

func TestConsume_ExhaustedPool(t *testing.T) {
	svc := newService(&fakeRepo{})
	sc := newScope()

	_, err := svc.Consume(context.Background(), greenCard, sc)
	require.True(t, apperror.IsCode(err, apperror.CodePoolExhausted))

	// The scope is named for operator diagnosis; nothing was fabricated.
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, greenCard, appErr.Details["kind"])
	assert.Equal(t, sc.TenantID.String(), appErr.Details["tenant_id"])
}

func TestConsume_OneWay(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)
	sc := newScope()

	require.NoError(t, svc.LoadPool(context.Background(), greenCard, sc, []string{"GC-1"}))

	_, err := svc.Consume(context.Background(), greenCard, sc)
	require.NoError(t, err)

	// Consumption never reverses: the pool is now empty for good.
	_, err = svc.Consume(context.Background(), greenCard, sc)
	assert.True(t, apperror.IsCode(err, apperror.CodePoolExhausted))
}

func TestConsume_SkipsRacedRecord(t *testing.T) {
	repo := &fakeRepo{consumeLosses: 1}
	svc := newService(repo)
	sc := newScope()

	require.NoError(t, svc.LoadPool(context.Background(), greenCard, sc, []string{"GC-1", "GC-2"}))

	// The first candidate is lost to a concurrent consumer; the loop moves on
	// to the remaining record instead of failing.
	got, err := svc.Consume(context.Background(), greenCard, sc)
	require.NoError(t, err)
	assert.Equal(t, "GC-2", got)
}

func TestLoadPool_CollisionRejectsWholeBatch(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)
	sc := newScope()

	require.NoError(t, svc.LoadPool(context.Background(), greenCard, sc, []string{"GC-1"}))

	err := svc.LoadPool(context.Background(), greenCard, sc, []string{"GC-9", "GC-1"})
	require.True(t, apperror.IsCode(err, apperror.CodeBulkLoadCollision))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "GC-1", appErr.Details["identifier"])

	// No partial application: GC-9 must not have slipped in.
	avail, listErr := svc.ListAvailable(context.Background(), greenCard, sc)
	require.NoError(t, listErr)
	assert.ElementsMatch(t, []string{"GC-1"}, avail)
}

func TestLoadPool_DuplicateWithinBatch(t *testing.T) {
	svc := newService(&fakeRepo{})

	err := svc.LoadPool(context.Background(), greenCard, newScope(), []string{"GC-1", "GC-1"})
	assert.True(t, apperror.IsCode(err, apperror.CodeBulkLoadCollision))
}

func TestLoadPool_EmptyBatch(t *testing.T) {
	svc := newService(&fakeRepo{})

	err := svc.LoadPool(context.Background(), greenCard, newScope(), nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestListAvailable_ExcludesConsumed(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)
	sc := newScope()

	require.NoError(t, svc.LoadPool(context.Background(), greenCard, sc, []string{"GC-1", "GC-2", "GC-3"}))
	consumed, err := svc.Consume(context.Background(), greenCard, sc)
	require.NoError(t, err)

	avail, err := svc.ListAvailable(context.Background(), greenCard, sc)
	require.NoError(t, err)
	assert.Len(t, avail, 2)
	assert.NotContains(t, avail, consumed)
}

func TestPoolsAreScopedByType(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo)
	sc := newScope()

	require.NoError(t, svc.LoadPool(context.Background(), greenCard, sc, []string{"GC-1"}))

	_, err := svc.Consume(context.Background(), "other-type", sc)
	assert.True(t, apperror.IsCode(err, apperror.CodePoolExhausted))
}
