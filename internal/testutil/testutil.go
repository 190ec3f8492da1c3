// Package testutil provides a migrated in-memory store and seed helpers for tests
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/db"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

// NopLogger discards every message
func NopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// NewDB opens a private in-memory sqlite database with all migrations applied
func NewDB(t *testing.T) database.DB {
	t.Helper()

	logger := NopLogger()
	conn, err := database.Connect(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   ":memory:",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Source: db.Migrations,
		Dir:    db.MigrationsDir,
	})
	require.NoError(t, migrations.MigrateDB(conn))

	return conn
}

func SeedCarrier(t *testing.T, conn database.DB, name string) models.Carrier {
	t.Helper()

	carrier := models.Carrier{ID: uuid.New().String(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := conn.ExecContext(context.Background(),
		conn.Rebind("INSERT INTO carriers (id, name, created_at) VALUES (?, ?, ?)"),
		carrier.ID, carrier.Name, carrier.CreatedAt)
	require.NoError(t, err)
	return carrier
}

// SeedService registers a service known by code. carrier may be nil for an unowned service.
func SeedService(t *testing.T, conn database.DB, code string, carrier *models.Carrier) models.Service {
	t.Helper()

	svc := models.Service{ID: uuid.New().String(), CarrierSideID: &code, CreatedAt: time.Now().UTC()}
	if carrier != nil {
		svc.CarrierID = &carrier.ID
	}
	_, err := conn.ExecContext(context.Background(),
		conn.Rebind("INSERT INTO services (id, carrier_side_id, carrier_id, created_at) VALUES (?, ?, ?, ?)"),
		svc.ID, svc.CarrierSideID, svc.CarrierID, svc.CreatedAt)
	require.NoError(t, err)
	return svc
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, conn database.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, conn.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM "+table))
	return n
}

func Ptr[T any](v T) *T {
	return &v
}
