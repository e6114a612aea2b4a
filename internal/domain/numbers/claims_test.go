package numbers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refnum/pkg/logger"
)

func TestAssignNumber_MarksExistingRecord(t *testing.T) {
	repo := newFakeRepo()
	sc := newScope()
	require.NoError(t, repo.Create(context.Background(), NewRecord(sc, "C-2", false)))

	claims := NewClaimAllocator(repo, logger.Nop())

	require.NoError(t, claims.AssignNumber(context.Background(), sc, "C-1", "C-2"))
	assert.Equal(t, 1, repo.assignedCount(sc, "C-2"))
}

func TestAssignNumber_FabricatesMissingRecord(t *testing.T) {
	repo := newFakeRepo()
	sc := newScope()
	claims := NewClaimAllocator(repo, logger.Nop())

	require.NoError(t, claims.AssignNumber(context.Background(), sc, "C-1", "C-2"))
	assert.Equal(t, 1, repo.assignedCount(sc, "C-2"))
}

func TestAssignNumber_KeepsOldNumberAssigned(t *testing.T) {
	repo := newFakeRepo()
	sc := newScope()
	claims := NewClaimAllocator(repo, logger.Nop())

	_, err := claims.Consume(context.Background(), sc, "C-1")
	require.NoError(t, err)

	// Both numbers coexist during the transition window; releasing the old
	// one is a separate, explicit step.
	require.NoError(t, claims.AssignNumber(context.Background(), sc, "C-1", "C-2"))
	assert.Equal(t, 1, repo.assignedCount(sc, "C-1"))
	assert.Equal(t, 1, repo.assignedCount(sc, "C-2"))
}

func TestUnassignNumber_RetiresOldNumber(t *testing.T) {
	repo := newFakeRepo()
	sc := newScope()
	claims := NewClaimAllocator(repo, logger.Nop())

	_, err := claims.Consume(context.Background(), sc, "C-1")
	require.NoError(t, err)
	require.NoError(t, claims.AssignNumber(context.Background(), sc, "C-1", "C-2"))

	require.NoError(t, claims.UnassignNumber(context.Background(), sc, "C-1", false))

	// C-2 stays assigned; C-1 is gone for good, not returned to the pool.
	assert.Equal(t, 1, repo.assignedCount(sc, "C-2"))
	rec, err := repo.FindByNumber(context.Background(), sc, "C-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUnassignNumber_RestoreOldKeepsRecord(t *testing.T) {
	repo := newFakeRepo()
	sc := newScope()
	claims := NewClaimAllocator(repo, logger.Nop())

	_, err := claims.Consume(context.Background(), sc, "C-1")
	require.NoError(t, err)

	require.NoError(t, claims.UnassignNumber(context.Background(), sc, "C-1", true))
	assert.Equal(t, 1, repo.assignedCount(sc, "C-1"))
}

func TestReuseOldNumber_ReturnsToService(t *testing.T) {
	repo := newFakeRepo()
	sc := newScope()
	claims := NewClaimAllocator(repo, logger.Nop())

	_, err := claims.Consume(context.Background(), sc, "C-1")
	require.NoError(t, err)
	require.NoError(t, claims.ReuseOldNumber(context.Background(), sc, "C-1"))

	assert.Equal(t, 0, repo.assignedCount(sc, "C-1"))

	// The released record is consumable again.
	num, err := claims.Consume(context.Background(), sc, "C-1")
	require.NoError(t, err)
	assert.Equal(t, "C-1", num)
}

func TestAssignNumber_RequiresNewNumber(t *testing.T) {
	claims := NewClaimAllocator(newFakeRepo(), logger.Nop())

	err := claims.AssignNumber(context.Background(), newScope(), "C-1", "")
	assert.Error(t, err)
}
