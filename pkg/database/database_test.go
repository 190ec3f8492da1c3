package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/database"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{
			name: "postgres",
			cfg:  database.Config{Driver: database.DriverPostgres, Host: "db", Port: 5432, User: "fern", Password: "p@ss", Name: "fern"},
			want: "postgres://fern:p%40ss@db:5432/fern?sslmode=disable",
		},
		{
			name: "postgres ssl",
			cfg:  database.Config{Host: "db", Port: 5433, User: "fern", Name: "tasks", SSLMode: "require"},
			want: "postgres://fern:@db:5433/tasks?sslmode=require",
		},
		{
			name: "sqlite",
			cfg:  database.Config{Driver: database.DriverSQLite, Path: ":memory:"},
			want: ":memory:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := database.Connect(context.Background(), database.Config{Driver: "mysql"}, testutil.NopLogger())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func countCarriers(t *testing.T, db database.DB) int {
	return testutil.CountRows(t, db, "carriers")
}

func insertCarrier(ctx context.Context, db database.DB, id, name string) error {
	_, err := database.Conn(ctx, db).ExecContext(ctx,
		db.Rebind("INSERT INTO carriers (id, name, created_at) VALUES (?, ?, ?)"), id, name, time.Now().UTC())
	return err
}

func TestGetTx_NestedCallersDoNotCommit(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	ownerCtx, tx, err := db.GetTx(ctx, nil)
	require.NoError(t, err)

	nestedCtx, nested, err := db.GetTx(ownerCtx, nil)
	require.NoError(t, err)
	assert.Same(t, tx, nested)

	require.NoError(t, insertCarrier(nestedCtx, db, "c1", "Acme"))
	require.NoError(t, nested.Commit(nestedCtx))
	assert.True(t, tx.IsOpen())

	require.NoError(t, tx.Rollback(ownerCtx))
	assert.False(t, tx.IsOpen())
	assert.Equal(t, 0, countCarriers(t, db))
}

func TestGetTx_Commit(t *testing.T) {
	db := testutil.NewDB(t)

	ctx, tx, err := db.GetTx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, insertCarrier(ctx, db, "c1", "Acme"))
	require.NoError(t, tx.Commit(ctx))

	// closed transactions ignore further calls
	assert.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, 1, countCarriers(t, db))
}

func TestIsUniqueViolation(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, insertCarrier(ctx, db, "c1", "Acme"))
	err := insertCarrier(ctx, db, "c1", "Acme again")
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.False(t, database.IsUniqueViolation(nil))
	assert.False(t, database.IsTimeout(err))
	assert.True(t, database.IsTimeout(context.DeadlineExceeded))
}
