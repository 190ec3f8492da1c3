// Package service provides read access to the service registry
package service

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/internal/repositories"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "services"

var columns = []string{"id", "carrier_side_id", "carrier_id", "name", "created_at"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func New(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// FindByCarrierSideIDs loads every service whose carrier-side id is one of codes.
// Comparison is exact and case-sensitive. A code may match more than one service.
func (r *Repository) FindByCarrierSideIDs(ctx context.Context, codes []string) ([]models.Service, error) {
	ctx, span := tracing.StartSpan(ctx, "service.Repository.FindByCarrierSideIDs")
	defer span.End()

	services := []models.Service{}
	if len(codes) == 0 {
		return services, nil
	}

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...).From(table).Where(sb.In("carrier_side_id", database.Args(codes)...)).OrderBy("id")
	query, args := sb.Build()

	if err := database.Conn(ctx, r.db).SelectContext(ctx, &services, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("codes", len(codes)).Error("Failed to find services")
		return nil, repositories.StoreError("find services", err)
	}
	return services, nil
}

// ListByTask returns the services linked to a task, in link order
func (r *Repository) ListByTask(ctx context.Context, taskID string) ([]models.Service, error) {
	ctx, span := tracing.StartSpan(ctx, "service.Repository.ListByTask")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select("s.id", "s.carrier_side_id", "s.carrier_id", "s.name", "s.created_at").
		From("services s").
		Join("task_services ts", "ts.service_id = s.id").
		Where(sb.Equal("ts.task_id", taskID)).
		OrderBy("ts.created_at", "s.id")
	query, args := sb.Build()

	services := []models.Service{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &services, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("task_id", taskID).Error("Failed to list task services")
		return nil, repositories.StoreError("list task services", err)
	}
	return services, nil
}

func (r *Repository) Create(ctx context.Context, svc models.Service) (*models.Service, error) {
	ctx, span := tracing.StartSpan(ctx, "service.Repository.Create")
	defer span.End()

	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	ib := database.NewStruct(models.Service{}, r.db.Flavor()).InsertInto(table, &svc)
	query, args := ib.Build()

	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", svc.ID).Error("Failed to create service")
		return nil, repositories.StoreError("create service", err)
	}
	return &svc, nil
}
