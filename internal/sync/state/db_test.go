package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokemnky/catalog-sync/database"
)

func TestDBStateService(t *testing.T) {
	t.Parallel()

	pool, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)

	svc := NewDBStateService(pool)
	ctx := context.Background()

	job, err := svc.Create(ctx, ModeWorker, []string{"pokemon", "move"})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, job.Status)
	assert.Equal(t, []string{"pokemon", "move"}, job.Scope)

	require.NoError(t, svc.RecordSuccess(ctx, job.ID, 2))
	require.NoError(t, svc.RecordFailure(ctx, job.ID, NewErrorEntry("https://x/move/1/", errors.New("status 500"))))
	require.NoError(t, svc.SetRemaining(ctx, job.ID, 5))
	require.NoError(t, svc.AddRemaining(ctx, job.ID, -7))

	got, err := svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Succeeded)
	assert.Equal(t, int64(1), got.Failed)
	assert.Zero(t, got.Remaining)
	assert.Equal(t, []ErrorEntry{{Identifier: "https://x/move/1/", Message: "status 500"}}, got.Errors)

	final, err := svc.Finish(ctx, job.ID, StatusPartial, "done with failures")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, final.Status)
	assert.Equal(t, "done with failures", final.Message)
	assert.NotNil(t, final.CompletedAt)

	require.ErrorIs(t, svc.RecordSuccess(ctx, job.ID, 1), ErrJobFinalized)
	_, err = svc.Finish(ctx, job.ID, StatusCompleted, "")
	require.ErrorIs(t, err, ErrJobFinalized)

	_, err = svc.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrJobNotFound)
	require.ErrorIs(t, svc.RecordSuccess(ctx, uuid.New(), 1), ErrJobNotFound)
	_, err = svc.Finish(ctx, uuid.New(), StatusCompleted, "")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestDBStateServiceListAndSweep(t *testing.T) {
	t.Parallel()

	pool, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)

	svc := NewDBStateService(pool)
	ctx := context.Background()

	seed, err := svc.Create(ctx, ModeSeed, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, ModeDetect, nil)
	require.NoError(t, err)

	seeds, err := svc.List(ctx, ListFilter{Mode: ModeSeed})
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, seed.ID, seeds[0].ID)

	all, err := svc.List(ctx, ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// nothing is older than an hour
	n, err := svc.FailStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = pool.Exec(ctx, `UPDATE sync_job SET heartbeat_at = now() - interval '1 hour' WHERE id = $1`, seed.ID)
	require.NoError(t, err)

	n, err = svc.FailStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, staleMessage, got.Message)
}
