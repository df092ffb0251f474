package sqlc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pokemnky/catalog-sync/database"
	"github.com/pokemnky/catalog-sync/internal/db/pgtypes"
)

func TestGetSyncJob(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		setupFunc    func(t *testing.T, queries *Queries) []uuid.UUID
		scenarioFunc func(t *testing.T, queries *Queries, ids []uuid.UUID)
	}{
		{
			name: "no job record",
			//nolint:thelper // We want to see these lines in the test output
			setupFunc: func(_ *testing.T, _ *Queries) []uuid.UUID {
				return []uuid.UUID{uuid.New()}
			},
			//nolint:thelper // We want to see these lines in the test output
			scenarioFunc: func(t *testing.T, queries *Queries, ids []uuid.UUID) {
				_, err := queries.GetSyncJob(context.Background(), ids[0])
				require.ErrorIs(t, err, pgx.ErrNoRows)
			},
		},
		{
			name: "get running job",
			//nolint:thelper // We want to see these lines in the test output
			setupFunc: func(t *testing.T, queries *Queries) []uuid.UUID {
				job, err := queries.InsertSyncJob(context.Background(), InsertSyncJobParams{
					Mode:  "seed",
					Scope: []string{"type", "pokemon"},
				})
				require.NoError(t, err)
				return []uuid.UUID{job.ID}
			},
			//nolint:thelper // We want to see these lines in the test output
			scenarioFunc: func(t *testing.T, queries *Queries, ids []uuid.UUID) {
				job, err := queries.GetSyncJob(context.Background(), ids[0])
				require.NoError(t, err)
				require.Equal(t, ids[0], job.ID)
				require.Equal(t, "seed", job.Mode)
				require.Equal(t, "running", job.Status)
				require.Equal(t, []string{"type", "pokemon"}, job.Scope)
				require.Nil(t, job.CompletedAt)
				require.JSONEq(t, `[]`, string(job.ErrorLog))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db, cleanupFunc := database.SetupTestDB(t)
			t.Cleanup(cleanupFunc)
			queries := New(db)
			require.NotNil(t, queries)

			ids := tc.setupFunc(t, queries)
			tc.scenarioFunc(t, queries, ids)
		})
	}
}

func TestInsertSyncJobRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)

	_, err := queries.InsertSyncJob(context.Background(), InsertSyncJobParams{Mode: "battle"})
	require.Error(t, err)
}

func TestSyncJobCounters(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	job, err := queries.InsertSyncJob(ctx, InsertSyncJobParams{Mode: "worker", Scope: []string{}})
	require.NoError(t, err)

	n, err := queries.IncrementJobSucceeded(ctx, IncrementJobSucceededParams{Delta: 3, ID: job.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = queries.AddJobRemaining(ctx, AddJobRemainingParams{Delta: 10, ID: job.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// remaining never goes negative
	_, err = queries.AddJobRemaining(ctx, AddJobRemainingParams{Delta: -25, ID: job.ID})
	require.NoError(t, err)

	for i := range 3 {
		entry, err := json.Marshal(map[string]string{"identifier": "pokemon/" + string(rune('a'+i)), "message": "boom"})
		require.NoError(t, err)
		_, err = queries.AppendJobFailure(ctx, AppendJobFailureParams{MaxEntries: 2, Entry: entry, ID: job.ID})
		require.NoError(t, err)
	}

	got, err := queries.GetSyncJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), got.SucceededCount)
	require.Equal(t, int64(3), got.FailedCount)
	require.Equal(t, int64(0), got.RemainingCount)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal(got.ErrorLog, &entries))
	require.Len(t, entries, 2, "error log is capped")

	msg := "done"
	finished, err := queries.FinishSyncJob(ctx, FinishSyncJobParams{Status: "partial", Message: &msg, ID: job.ID})
	require.NoError(t, err)
	require.Equal(t, "partial", finished.Status)
	require.NotNil(t, finished.CompletedAt)

	// terminal jobs no longer accept updates
	n, err = queries.IncrementJobSucceeded(ctx, IncrementJobSucceededParams{Delta: 1, ID: job.ID})
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = queries.FinishSyncJob(ctx, FinishSyncJobParams{Status: "completed", ID: job.ID})
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestListSyncJobs(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	for _, mode := range []string{"seed", "worker", "worker"} {
		_, err := queries.InsertSyncJob(ctx, InsertSyncJobParams{Mode: mode, Scope: []string{}})
		require.NoError(t, err)
	}

	all, err := queries.ListSyncJobs(ctx, ListSyncJobsParams{MaxRows: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)

	mode := "worker"
	workers, err := queries.ListSyncJobs(ctx, ListSyncJobsParams{Mode: &mode, MaxRows: 10})
	require.NoError(t, err)
	require.Len(t, workers, 2)

	limited, err := queries.ListSyncJobs(ctx, ListSyncJobsParams{MaxRows: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestFailStaleSyncJobs(t *testing.T) {
	t.Parallel()

	db, cleanupFunc := database.SetupTestDB(t)
	t.Cleanup(cleanupFunc)
	queries := New(db)
	ctx := context.Background()

	stale, err := queries.InsertSyncJob(ctx, InsertSyncJobParams{Mode: "worker", Scope: []string{}})
	require.NoError(t, err)
	fresh, err := queries.InsertSyncJob(ctx, InsertSyncJobParams{Mode: "worker", Scope: []string{}})
	require.NoError(t, err)

	_, err = db.Exec(ctx, `UPDATE sync_job SET heartbeat_at = now() - interval '1 hour' WHERE id = $1`, stale.ID)
	require.NoError(t, err)

	msg := "no heartbeat"
	n, err := queries.FailStaleSyncJobs(ctx, FailStaleSyncJobsParams{
		Message:    &msg,
		StaleAfter: pgtypes.NewInterval(10 * time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := queries.GetSyncJob(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, "failed", got.Status)

	got, err = queries.GetSyncJob(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, "running", got.Status)
}
