package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/beadprep/internal/domain"
)

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_CreateAndGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	params := domain.DefaultParams()
	params.SampleCount = 24
	run := domain.NewRun(params, "sim", "biorad-200")
	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, domain.RunStatusPending, got.Status)
	assert.Equal(t, 24, got.Params.SampleCount)
	assert.Equal(t, "sim", got.Driver)
	assert.Equal(t, "biorad-200", got.Profile)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)
	assert.Empty(t, got.Phase)
}

func TestSQLite_CreateDuplicate(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	run := domain.NewRun(domain.DefaultParams(), "sim", "biorad-200")
	require.NoError(t, s.CreateRun(ctx, run))

	err := s.CreateRun(ctx, run)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestSQLite_GetMissing(t *testing.T) {
	s := openMemory(t)

	_, err := s.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateRun(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	run := domain.NewRun(domain.DefaultParams(), "sim", "biorad-200")
	require.NoError(t, s.CreateRun(ctx, run))

	run.MarkRunning()
	run.EnterPhase(domain.PhaseWash)
	run.Pauses = 2
	run.MarkFailed("z-axis stall")
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	assert.Equal(t, domain.PhaseWash, got.Phase)
	assert.Equal(t, 2, got.Pauses)
	assert.Equal(t, "z-axis stall", got.Error)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, *run.FinishedAt, *got.FinishedAt, time.Millisecond)
}

func TestSQLite_UpdateMissing(t *testing.T) {
	s := openMemory(t)

	run := domain.NewRun(domain.DefaultParams(), "sim", "biorad-200")
	err := s.UpdateRun(context.Background(), run)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		run := domain.NewRun(domain.DefaultParams(), "sim", "biorad-200")
		run.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if i == 1 {
			run.MarkRunning()
			run.MarkSucceeded()
		}
		require.NoError(t, s.CreateRun(ctx, run))
		ids = append(ids, run.ID)
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Новые первыми
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	succeeded, err := s.ListRuns(ctx, RunFilter{Status: domain.RunStatusSucceeded})
	require.NoError(t, err)
	require.Len(t, succeeded, 1)
	assert.Equal(t, ids[1], succeeded[0].ID)

	page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestSQLite_RecordPhaseUpsert(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	run := domain.NewRun(domain.DefaultParams(), "sim", "biorad-200")
	require.NoError(t, s.CreateRun(ctx, run))

	setup := domain.NewPhaseRecord(run.ID, domain.PhaseSetup)
	require.NoError(t, s.RecordPhase(ctx, setup))
	setup.Finish(nil)
	require.NoError(t, s.RecordPhase(ctx, setup))

	binding := domain.NewPhaseRecord(run.ID, domain.PhaseBeadBinding)
	require.NoError(t, s.RecordPhase(ctx, binding))
	binding.Finish(errors.New("out of tips"))
	require.NoError(t, s.RecordPhase(ctx, binding))

	recs, err := s.ListPhases(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, domain.PhaseSetup, recs[0].Phase)
	assert.Equal(t, domain.PhaseStatusSucceeded, recs[0].Status)
	assert.NotNil(t, recs[0].FinishedAt)

	assert.Equal(t, domain.PhaseBeadBinding, recs[1].Phase)
	assert.Equal(t, domain.PhaseStatusFailed, recs[1].Status)
	assert.Equal(t, "out of tips", recs[1].Error)
	assert.Equal(t, run.ID, recs[1].RunID)
}

func TestSQLite_RecordPhaseUnknownRun(t *testing.T) {
	s := openMemory(t)

	rec := domain.NewPhaseRecord(uuid.New(), domain.PhaseSetup)
	assert.Error(t, s.RecordPhase(context.Background(), rec))
}

func TestSQLite_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	run := domain.NewRun(domain.DefaultParams(), "sim", "biorad-200")
	require.NoError(t, s.CreateRun(context.Background(), run))
	require.NoError(t, s.Close())

	// Повторное открытие видит запись
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetRun(context.Background(), run.ID)
	assert.NoError(t, err)
}

func TestOpen_FallsBackToSQLite(t *testing.T) {
	store, err := Open(context.Background(), Config{SQLitePath: MemoryPath})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLiteStore)
	assert.True(t, ok)
}

func TestRunFilter_Defaults(t *testing.T) {
	assert.Equal(t, defaultListLimit, RunFilter{}.limit())
	assert.Equal(t, 10, RunFilter{Limit: 10}.limit())
	assert.Equal(t, 0, RunFilter{Offset: -5}.offset())
}
