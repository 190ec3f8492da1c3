package merging

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/task"
	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

var windowStart = time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

func provisional(externalID *string) *models.ProvisionalTask {
	return &models.ProvisionalTask{
		ExternalID: externalID,
		StartTime:  windowStart,
		EndTime:    windowStart.Add(4 * time.Hour),
		TaskType:   "Mantenimiento",
	}
}

func newStoreEngine(t *testing.T) (*Engine, database.DB) {
	db := testutil.NewDB(t)
	logger := testutil.NopLogger()
	return NewEngine(db, task.New(db, logger), Config{Timeout: 5 * time.Second, RetryDelay: time.Millisecond}, logger), db
}

func TestEngine_CreateThenMerge(t *testing.T) {
	engine, db := newStoreEngine(t)
	ctx := context.Background()

	acme := testutil.SeedCarrier(t, db, "Acme")
	s1 := testutil.SeedService(t, db, "101", &acme)
	s2 := testutil.SeedService(t, db, "102", &acme)

	first, err := engine.Reconcile(ctx, provisional(testutil.Ptr("TKT-1")), &acme, []models.Service{s1})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, []string{s1.ID}, first.AddedServiceIDs)
	require.NotNil(t, first.Task.CarrierID)
	assert.Equal(t, acme.ID, *first.Task.CarrierID)

	second, err := engine.Reconcile(ctx, provisional(testutil.Ptr("TKT-1")), &acme, []models.Service{s1, s2})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Task.ID, second.Task.ID)
	assert.Equal(t, []string{s2.ID}, second.AddedServiceIDs)
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, second.LinkedServiceIDs)
	assert.Empty(t, second.Discrepancies)

	// links are never removed
	third, err := engine.Reconcile(ctx, provisional(testutil.Ptr("TKT-1")), &acme, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, third.LinkedServiceIDs)

	assert.Equal(t, 1, testutil.CountRows(t, db, "scheduled_tasks"))
	assert.Equal(t, 2, testutil.CountRows(t, db, "task_services"))
}

func TestEngine_MergeReportsDiscrepancies(t *testing.T) {
	engine, db := newStoreEngine(t)
	ctx := context.Background()
	acme := testutil.SeedCarrier(t, db, "Acme")

	_, err := engine.Reconcile(ctx, provisional(testutil.Ptr("TKT-1")), &acme, nil)
	require.NoError(t, err)

	resent := provisional(testutil.Ptr("TKT-1"))
	resent.EndTime = resent.EndTime.Add(time.Hour)
	resent.TaskType = "Emergencia"

	result, err := engine.Reconcile(ctx, resent, &acme, nil)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, []string{"end_time", "task_type"}, result.Discrepancies)
	assert.Equal(t, "Mantenimiento", result.Task.TaskType, "stored fields are never overwritten")
}

func TestEngine_WithoutLookupKeyAlwaysCreates(t *testing.T) {
	engine, db := newStoreEngine(t)
	ctx := context.Background()
	acme := testutil.SeedCarrier(t, db, "Acme")

	cases := []struct {
		name       string
		externalID *string
		carrier    *models.Carrier
	}{
		{"no external id", nil, &acme},
		{"no carrier", testutil.Ptr("TKT-9"), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first, err := engine.Reconcile(ctx, provisional(tc.externalID), tc.carrier, nil)
			require.NoError(t, err)
			second, err := engine.Reconcile(ctx, provisional(tc.externalID), tc.carrier, nil)
			require.NoError(t, err)

			assert.True(t, first.Created)
			assert.True(t, second.Created)
			assert.NotEqual(t, first.Task.ID, second.Task.ID)
		})
	}
}

func TestEngine_FlagsOverlapWithoutMerging(t *testing.T) {
	engine, db := newStoreEngine(t)
	ctx := context.Background()
	acme := testutil.SeedCarrier(t, db, "Acme")
	shared := testutil.SeedService(t, db, "101", &acme)

	first, err := engine.Reconcile(ctx, provisional(testutil.Ptr("TKT-1")), &acme, []models.Service{shared})
	require.NoError(t, err)
	assert.Empty(t, first.OverlappingTaskIDs)

	second, err := engine.Reconcile(ctx, provisional(testutil.Ptr("TKT-2")), &acme, []models.Service{shared})
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.Equal(t, []string{first.Task.ID}, second.OverlappingTaskIDs)
	assert.Equal(t, 2, testutil.CountRows(t, db, "scheduled_tasks"))
}

func TestEngine_ConcurrentDuplicateIngestion(t *testing.T) {
	engine, db := newStoreEngine(t)
	ctx := context.Background()
	acme := testutil.SeedCarrier(t, db, "Acme")
	s1 := testutil.SeedService(t, db, "101", &acme)
	s2 := testutil.SeedService(t, db, "102", &acme)

	var wg sync.WaitGroup
	results := make([]*models.ReconcileResult, 2)
	errs := make([]error, 2)
	for i, services := range [][]models.Service{{s1}, {s2}} {
		wg.Add(1)
		go func(i int, services []models.Service) {
			defer wg.Done()
			results[i], errs[i] = engine.Reconcile(ctx, provisional(testutil.Ptr("TKT-1")), &acme, services)
		}(i, services)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Task.ID, results[1].Task.ID)
	assert.True(t, results[0].Created != results[1].Created, "exactly one call creates the task")
	assert.Equal(t, 1, testutil.CountRows(t, db, "scheduled_tasks"))
	assert.Equal(t, 2, testutil.CountRows(t, db, "task_services"))
}

type fakeTx struct {
	database.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) IsOpen() bool {
	return !f.committed && !f.rolledBack
}

func (f *fakeTx) Commit(_ context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(_ context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeDB struct {
	txs []*fakeTx
}

func (f *fakeDB) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return ctx, tx, nil
}

// racingStore simulates another writer inserting the same pair between find and insert
type racingStore struct {
	winner     *models.ScheduledTask
	alwaysRace bool
	finds      int
	inserts    int
	linkedOnto []string
}

func (s *racingStore) FindByExternalID(_ context.Context, _, _ string) (*models.ScheduledTask, error) {
	s.finds++
	if s.finds == 1 || s.alwaysRace {
		return nil, nil
	}
	return s.winner, nil
}

func (s *racingStore) Insert(_ context.Context, task *models.ScheduledTask) error {
	s.inserts++
	return &errors.DuplicateRaceError{ExternalID: *task.ExternalID, CarrierID: *task.CarrierID}
}

func (s *racingStore) LinkServices(_ context.Context, taskID string, serviceIDs []string, _ time.Time) ([]string, error) {
	s.linkedOnto = append(s.linkedOnto, taskID)
	return serviceIDs, nil
}

func (s *racingStore) LinkedServiceIDs(_ context.Context, _ string) ([]string, error) {
	return []string{"s1"}, nil
}

func (s *racingStore) FindOverlapping(_ context.Context, _ string, _ []string, _, _ time.Time) ([]string, error) {
	return nil, nil
}

func TestEngine_DuplicateRaceRetriesThroughMerge(t *testing.T) {
	winner := &models.ScheduledTask{ID: "winner", StartTime: windowStart, EndTime: windowStart.Add(4 * time.Hour), TaskType: "Mantenimiento"}
	store := &racingStore{winner: winner}
	db := &fakeDB{}
	engine := NewEngine(db, store, Config{RetryDelay: time.Millisecond}, testutil.NopLogger())
	acme := models.Carrier{ID: "c1", Name: "Acme"}

	result, err := engine.Reconcile(context.Background(), provisional(testutil.Ptr("TKT-1")), &acme, []models.Service{{ID: "s1"}})
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, "winner", result.Task.ID)
	assert.Equal(t, []string{"winner"}, store.linkedOnto)
	require.Len(t, db.txs, 2)
	assert.True(t, db.txs[0].rolledBack)
	assert.True(t, db.txs[1].committed)
}

func TestEngine_PersistentRaceSurfacesStoreUnavailable(t *testing.T) {
	store := &racingStore{alwaysRace: true}
	engine := NewEngine(&fakeDB{}, store, Config{RetryDelay: time.Millisecond}, testutil.NopLogger())
	acme := models.Carrier{ID: "c1", Name: "Acme"}

	_, err := engine.Reconcile(context.Background(), provisional(testutil.Ptr("TKT-1")), &acme, nil)
	require.Error(t, err)
	assert.True(t, errors.IsStoreUnavailable(err))
	assert.Equal(t, 2, store.inserts, "retried exactly once")
}

func TestDiscrepancies(t *testing.T) {
	stored := &models.ScheduledTask{StartTime: windowStart, EndTime: windowStart.Add(time.Hour), TaskType: "Corte"}
	same := &models.ProvisionalTask{StartTime: windowStart.In(time.FixedZone("UTC-3", -3*3600)), EndTime: windowStart.Add(time.Hour), TaskType: "Corte"}

	assert.Empty(t, Discrepancies(stored, same), "instants are compared, not zones")

	moved := *same
	moved.StartTime = windowStart.Add(time.Minute)
	assert.Equal(t, []string{"start_time"}, Discrepancies(stored, &moved))
}
