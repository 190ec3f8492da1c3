package task

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

func newTask(externalID, carrierID *string, start time.Time) *models.ScheduledTask {
	now := time.Now().UTC()
	return &models.ScheduledTask{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		CarrierID:  carrierID,
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		TaskType:   "Mantenimiento",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestRepository_InsertAndFind(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db, testutil.NopLogger())
	ctx := context.Background()
	acme := testutil.SeedCarrier(t, db, "Acme")

	start := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)
	task := newTask(testutil.Ptr("TKT-1"), &acme.ID, start)
	task.Description = testutil.Ptr("cambio de placa")
	require.NoError(t, repo.Insert(ctx, task))

	found, err := repo.FindByExternalID(ctx, "TKT-1", acme.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, task.ID, found.ID)
	assert.True(t, start.Equal(found.StartTime))
	assert.Equal(t, "cambio de placa", *found.Description)
	assert.Nil(t, found.ImpactDuration)

	missing, err := repo.FindByExternalID(ctx, "TKT-2", acme.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_InsertDuplicatePair(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db, testutil.NopLogger())
	ctx := context.Background()
	acme := testutil.SeedCarrier(t, db, "Acme")
	start := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, newTask(testutil.Ptr("TKT-1"), &acme.ID, start)))

	err := repo.Insert(ctx, newTask(testutil.Ptr("TKT-1"), &acme.ID, start))
	require.Error(t, err)
	assert.True(t, errors.IsDuplicateRace(err))
}

func TestRepository_NullPairsNeverCollide(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db, testutil.NopLogger())
	ctx := context.Background()
	start := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, newTask(testutil.Ptr("TKT-1"), nil, start)))
	require.NoError(t, repo.Insert(ctx, newTask(testutil.Ptr("TKT-1"), nil, start)))
	require.NoError(t, repo.Insert(ctx, newTask(nil, nil, start)))

	assert.Equal(t, 3, testutil.CountRows(t, db, "scheduled_tasks"))
}

func TestRepository_Get(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db, testutil.NopLogger())
	ctx := context.Background()

	task := newTask(nil, nil, time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, task))

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	_, err = repo.Get(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestRepository_LinkServicesIsAdditive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db, testutil.NopLogger())
	ctx := context.Background()

	s1 := testutil.SeedService(t, db, "101", nil)
	s2 := testutil.SeedService(t, db, "102", nil)
	task := newTask(nil, nil, time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, task))

	added, err := repo.LinkServices(ctx, task.ID, []string{s1.ID}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{s1.ID}, added)

	added, err = repo.LinkServices(ctx, task.ID, []string{s1.ID, s2.ID}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{s2.ID}, added)

	linked, err := repo.LinkedServiceIDs(ctx, task.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, linked)
}

func TestRepository_UpdateCarrier(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db, testutil.NopLogger())
	ctx := context.Background()
	acme := testutil.SeedCarrier(t, db, "Acme")
	start := time.Now().UTC()

	unresolved := newTask(testutil.Ptr("TKT-1"), nil, start)
	require.NoError(t, repo.Insert(ctx, unresolved))

	require.NoError(t, repo.UpdateCarrier(ctx, unresolved.ID, acme.ID, time.Now()))
	got, err := repo.Get(ctx, unresolved.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CarrierID)
	assert.Equal(t, acme.ID, *got.CarrierID)

	// a second unresolved copy cannot take the same pair
	copyTask := newTask(testutil.Ptr("TKT-1"), nil, start)
	require.NoError(t, repo.Insert(ctx, copyTask))
	err = repo.UpdateCarrier(ctx, copyTask.ID, acme.ID, time.Now())
	assert.True(t, errors.IsDuplicateRace(err))

	err = repo.UpdateCarrier(ctx, "missing", acme.ID, time.Now())
	assert.Equal(t, 404, httperror.GetStatusCode(err))
}

func TestRepository_FindOverlapping(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db, testutil.NopLogger())
	ctx := context.Background()

	shared := testutil.SeedService(t, db, "101", nil)
	other := testutil.SeedService(t, db, "202", nil)
	base := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	existing := newTask(testutil.Ptr("A"), nil, base)
	later := newTask(testutil.Ptr("B"), nil, base.Add(24*time.Hour))
	unrelated := newTask(testutil.Ptr("C"), nil, base)
	current := newTask(testutil.Ptr("D"), nil, base.Add(time.Hour))
	for _, task := range []*models.ScheduledTask{existing, later, unrelated, current} {
		require.NoError(t, repo.Insert(ctx, task))
	}
	_, err := repo.LinkServices(ctx, existing.ID, []string{shared.ID}, time.Now())
	require.NoError(t, err)
	_, err = repo.LinkServices(ctx, later.ID, []string{shared.ID}, time.Now())
	require.NoError(t, err)
	_, err = repo.LinkServices(ctx, unrelated.ID, []string{other.ID}, time.Now())
	require.NoError(t, err)
	_, err = repo.LinkServices(ctx, current.ID, []string{shared.ID}, time.Now())
	require.NoError(t, err)

	ids, err := repo.FindOverlapping(ctx, current.ID, []string{shared.ID}, current.StartTime, current.EndTime)
	require.NoError(t, err)
	assert.Equal(t, []string{existing.ID}, ids)
}
