// Package carrier provides read access to the carrier reference data
package carrier

import (
	"context"
	"database/sql"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/internal/repositories"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "carriers"

var columns = []string{"id", "name", "created_at"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func New(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// List returns every known carrier ordered by name
func (r *Repository) List(ctx context.Context) ([]models.Carrier, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...).From(table).OrderBy("name")
	query, args := sb.Build()

	carriers := []models.Carrier{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &carriers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list carriers")
		return nil, repositories.StoreError("list carriers", err)
	}
	return carriers, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Carrier, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...).From(table).Where(sb.Equal("id", id))
	query, args := sb.Build()

	var carrier models.Carrier
	err := database.Conn(ctx, r.db).GetContext(ctx, &carrier, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "carrier not found").AddMetaValue("id", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get carrier")
		return nil, repositories.StoreError("get carrier", err)
	}
	return &carrier, nil
}

// Create registers a carrier. Carriers are reference data loaded by operators.
func (r *Repository) Create(ctx context.Context, name string) (*models.Carrier, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.Create")
	defer span.End()

	carrier := &models.Carrier{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	ib := database.NewStruct(models.Carrier{}, r.db.Flavor()).InsertInto(table, carrier)
	query, args := ib.Build()

	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to create carrier")
		return nil, repositories.StoreError("create carrier", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": carrier.ID, "name": name}).Info("Created carrier")
	return carrier, nil
}
