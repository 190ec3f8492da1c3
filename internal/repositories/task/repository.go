// Package task persists scheduled tasks and their service links
package task

import (
	"context"
	"database/sql"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	table     = "scheduled_tasks"
	linkTable = "task_services"
)

var columns = []string{
	"id", "external_id", "carrier_id", "start_time", "end_time",
	"task_type", "impact_duration", "description", "created_at", "updated_at",
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func New(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Get(ctx context.Context, id string) (*models.ScheduledTask, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...).From(table).Where(sb.Equal("id", id))
	query, args := sb.Build()

	var task models.ScheduledTask
	err := database.Conn(ctx, r.db).GetContext(ctx, &task, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "task not found").AddMetaValue("id", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get task")
		return nil, repositories.StoreError("get task", err)
	}
	return &task, nil
}

// FindByExternalID returns the task holding the (externalID, carrierID) pair, or nil when none does
func (r *Repository) FindByExternalID(ctx context.Context, externalID, carrierID string) (*models.ScheduledTask, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.FindByExternalID")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select(columns...).From(table).Where(
		sb.Equal("external_id", externalID),
		sb.Equal("carrier_id", carrierID),
	)
	query, args := sb.Build()

	var task models.ScheduledTask
	err := database.Conn(ctx, r.db).GetContext(ctx, &task, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"external_id": externalID,
			"carrier_id":  carrierID,
		}).Error("Failed to find task")
		return nil, repositories.StoreError("find task", err)
	}
	return &task, nil
}

// Insert persists a new task. A unique violation on (external_id, carrier_id)
// is returned as a DuplicateRaceError.
func (r *Repository) Insert(ctx context.Context, task *models.ScheduledTask) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.Insert")
	defer span.End()

	ib := database.NewStruct(models.ScheduledTask{}, r.db.Flavor()).InsertInto(table, task)
	query, args := ib.Build()

	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err) {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"external_id": deref(task.ExternalID),
			"carrier_id":  deref(task.CarrierID),
		}).Warn("Task was inserted concurrently")
		return &errors.DuplicateRaceError{ExternalID: deref(task.ExternalID), CarrierID: deref(task.CarrierID), Err: err}
	}
	r.logger.WithContext(ctx).WithError(err).WithField("id", task.ID).Error("Failed to insert task")
	return repositories.StoreError("insert task", err)
}

// UpdateCarrier sets carrier_id on an existing task. When the new pair collides with
// another task a DuplicateRaceError is returned and the row is left unchanged.
func (r *Repository) UpdateCarrier(ctx context.Context, taskID, carrierID string, now time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.UpdateCarrier")
	defer span.End()

	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(table).Set(
		ub.Assign("carrier_id", carrierID),
		ub.Assign("updated_at", now.UTC()),
	).Where(ub.Equal("id", taskID))
	query, args := ub.Build()

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return &errors.DuplicateRaceError{CarrierID: carrierID, Err: err}
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", taskID).Error("Failed to update task carrier")
		return repositories.StoreError("update task carrier", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "task not found").AddMetaValue("id", taskID)
	}
	return nil
}

// LinkServices adds task_services rows, skipping links that already exist.
// Returns the service ids that were newly linked.
func (r *Repository) LinkServices(ctx context.Context, taskID string, serviceIDs []string, now time.Time) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.LinkServices")
	defer span.End()

	added := []string{}
	conn := database.Conn(ctx, r.db)
	for _, serviceID := range serviceIDs {
		ib := database.NewInsertBuilder(r.db.Flavor())
		ib.InsertInto(linkTable).
			Cols("task_id", "service_id", "created_at").
			Values(taskID, serviceID, now.UTC())
		ib.OnConflictDoNothing()
		query, args := ib.Build()

		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"task_id":    taskID,
				"service_id": serviceID,
			}).Error("Failed to link service")
			return nil, repositories.StoreError("link service", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added = append(added, serviceID)
		}
	}
	return added, nil
}

func (r *Repository) LinkedServiceIDs(ctx context.Context, taskID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.LinkedServiceIDs")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select("service_id").From(linkTable).Where(sb.Equal("task_id", taskID)).OrderBy("created_at", "service_id")
	query, args := sb.Build()

	ids := []string{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("task_id", taskID).Error("Failed to list linked services")
		return nil, repositories.StoreError("list linked services", err)
	}
	return ids, nil
}

// FindOverlapping returns other tasks linked to any of serviceIDs whose window intersects [start, end)
func (r *Repository) FindOverlapping(ctx context.Context, taskID string, serviceIDs []string, start, end time.Time) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "task.Repository.FindOverlapping")
	defer span.End()

	ids := []string{}
	if len(serviceIDs) == 0 {
		return ids, nil
	}

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Distinct().Select("t.id").
		From("scheduled_tasks t").
		Join("task_services ts", "ts.task_id = t.id").
		Where(
			sb.In("ts.service_id", database.Args(serviceIDs)...),
			sb.NotEqual("t.id", taskID),
			sb.LessThan("t.start_time", end.UTC()),
			sb.GreaterThan("t.end_time", start.UTC()),
		).
		OrderBy("t.id")
	query, args := sb.Build()

	if err := database.Conn(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("task_id", taskID).Error("Failed to find overlapping tasks")
		return nil, repositories.StoreError("find overlapping tasks", err)
	}
	return ids, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
