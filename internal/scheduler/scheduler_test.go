package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricewatch/internal/modules/alerts"
	testingpkg "github.com/aristath/pricewatch/internal/testing"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.panic {
		panic("kaboom")
	}
	return j.err
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &countingJob{name: "x"})
	require.Error(t, err)
	assert.Empty(t, s.Status())
}

func TestScheduler_AddJobRejectsDuplicateName(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "x"}))
	assert.Error(t, s.AddJob("@every 2h", &countingJob{name: "x"}))
}

func TestScheduler_RunNowRecordsOutcome(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "a_ok"}
	failing := &countingJob{name: "b_fail", err: errors.New("disk full")}

	require.NoError(t, s.AddJob("0 30 3 * * *", ok))
	require.NoError(t, s.AddJob("0 30 3 * * *", failing))

	require.NoError(t, s.RunNow(ok))
	require.EqualError(t, s.RunNow(failing), "disk full")

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "a_ok", status[0].Name)
	assert.NotNil(t, status[0].LastRun)
	assert.Empty(t, status[0].LastErr)
	assert.Equal(t, "disk full", status[1].LastErr)
}

func TestScheduler_RecoversPanickingJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "boom", panic: true}
	require.NoError(t, s.AddJob("@every 1h", job))

	err := s.RunNow(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("* * * * * *", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

type fakePruner struct {
	cutoff int64
	err    error
}

func (f *fakePruner) PruneBefore(ctx context.Context, ts int64) (int64, error) {
	f.cutoff = ts
	return 3, f.err
}

func TestAlertRetentionJob_UsesCutoff(t *testing.T) {
	p := &fakePruner{}
	job := NewAlertRetentionJob(p, 30, zerolog.Nop())
	now := time.Unix(1_700_000_000, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run())
	assert.Equal(t, now.Add(-30*24*time.Hour).Unix(), p.cutoff)
	assert.Equal(t, "alert_retention", job.Name())
}

func TestAlertRetentionJob_Disabled(t *testing.T) {
	p := &fakePruner{cutoff: -1}
	job := NewAlertRetentionJob(p, 0, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, int64(-1), p.cutoff)
}

func TestAlertRetentionJob_WrapsError(t *testing.T) {
	boom := errors.New("locked")
	job := NewAlertRetentionJob(&fakePruner{err: boom}, 7, zerolog.Nop())

	assert.ErrorIs(t, job.Run(), boom)
}

func TestAlertRetentionJob_PrunesLedger(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()

	holdingID := testingpkg.InsertHolding(t, db, "BTC", 100, 1000)
	repo := alerts.NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	old := now.Add(-40 * 24 * time.Hour).Unix()
	require.NoError(t, repo.Record(ctx, holdingID, "STOP_LOSS", "old", old))
	require.NoError(t, repo.Record(ctx, holdingID, "STOP_LOSS", "new", now.Unix()))

	job := NewAlertRetentionJob(repo, 30, zerolog.Nop())
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run())

	recent, err := repo.ListRecent(ctx, holdingID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].Message)
}

func TestWALCheckpointJob(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()

	job := NewWALCheckpointJob(db, zerolog.Nop())
	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())
}
