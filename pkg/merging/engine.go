// Package merging performs the transactional create-or-merge of scheduled tasks
package merging

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// TaskStore is the persistence the engine needs. Every call must honor the tx carried by ctx.
type TaskStore interface {
	FindByExternalID(ctx context.Context, externalID, carrierID string) (*models.ScheduledTask, error)
	Insert(ctx context.Context, task *models.ScheduledTask) error
	LinkServices(ctx context.Context, taskID string, serviceIDs []string, now time.Time) ([]string, error)
	LinkedServiceIDs(ctx context.Context, taskID string) ([]string, error)
	FindOverlapping(ctx context.Context, taskID string, serviceIDs []string, start, end time.Time) ([]string, error)
}

type TxBeginner interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

type Config struct {
	// Timeout bounds one reconciliation attempt, including its transaction
	Timeout time.Duration
	// RetryDelay is the pause before re-running after a concurrent insert
	RetryDelay time.Duration
}

type Engine struct {
	db     TxBeginner
	tasks  TaskStore
	cfg    Config
	logger ectologger.Logger
	now    func() time.Time
	newID  func() string
}

func NewEngine(db TxBeginner, tasks TaskStore, cfg Config, logger ectologger.Logger) *Engine {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 50 * time.Millisecond
	}
	return &Engine{
		db:     db,
		tasks:  tasks,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// Reconcile creates the task or merges service links into the existing task with the same
// (external id, carrier). A concurrent insert of the same pair is retried once through the
// merge path; if it still races the call fails with StoreUnavailableError.
func (e *Engine) Reconcile(ctx context.Context, task *models.ProvisionalTask, carrier *models.Carrier, services []models.Service) (*models.ReconcileResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Reconcile")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"external_id": deref(task.ExternalID),
		"carrier_id":  carrierID(carrier),
		"services":    len(services),
	})

	var result *models.ReconcileResult
	attempt := 0
	backoff := retry.WithMaxRetries(1, retry.NewConstant(e.cfg.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.ReconcileRetriesTotal.Inc()
			log.Warn("Retrying reconciliation after concurrent insert")
		}

		r, err := e.reconcileOnce(ctx, task, carrier, services)
		if err != nil {
			if errors.IsDuplicateRace(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("failed").Inc()
		tracing.RecordError(span, err)
		log.WithError(err).Error("Reconciliation failed")
		if errors.IsDuplicateRace(err) || !errors.IsStoreUnavailable(err) {
			return nil, errors.NewStoreUnavailableError("reconcile task", err)
		}
		return nil, err
	}

	outcome := "merged"
	if result.Created {
		outcome = "created"
	}
	metrics.ReconcileTotal.WithLabelValues(outcome).Inc()
	log.WithFields(map[string]any{
		"task_id": result.Task.ID,
		"outcome": outcome,
		"added":   len(result.AddedServiceIDs),
	}).Info("Reconciled task")

	return result, nil
}

func (e *Engine) reconcileOnce(ctx context.Context, task *models.ProvisionalTask, carrier *models.Carrier, services []models.Service) (result *models.ReconcileResult, err error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	ctx, tx, err := e.db.GetTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStoreUnavailableError("begin reconcile", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := e.now().UTC()
	serviceIDs := ectolinq.Map(services, func(svc models.Service) string { return svc.ID })

	var existing *models.ScheduledTask
	if task.ExternalID != nil && carrier != nil {
		existing, err = e.tasks.FindByExternalID(ctx, *task.ExternalID, carrier.ID)
		if err != nil {
			return nil, err
		}
	}

	if existing != nil {
		result, err = e.merge(ctx, existing, task, serviceIDs, now)
	} else {
		result, err = e.create(ctx, task, carrier, serviceIDs, now)
	}
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, errors.NewStoreUnavailableError("commit reconcile", err)
	}
	return result, nil
}

// merge only adds links. Disagreeing fields are reported, never written.
func (e *Engine) merge(ctx context.Context, existing *models.ScheduledTask, task *models.ProvisionalTask, serviceIDs []string, now time.Time) (*models.ReconcileResult, error) {
	added, err := e.tasks.LinkServices(ctx, existing.ID, serviceIDs, now)
	if err != nil {
		return nil, err
	}
	linked, err := e.tasks.LinkedServiceIDs(ctx, existing.ID)
	if err != nil {
		return nil, err
	}

	discrepancies := Discrepancies(existing, task)
	if len(discrepancies) > 0 {
		e.logger.WithContext(ctx).WithFields(map[string]any{
			"task_id": existing.ID,
			"fields":  discrepancies,
		}).Warn("Resent notification disagrees with stored task")
	}

	return &models.ReconcileResult{
		Task:             existing,
		Created:          false,
		LinkedServiceIDs: linked,
		AddedServiceIDs:  added,
		Discrepancies:    discrepancies,
	}, nil
}

func (e *Engine) create(ctx context.Context, task *models.ProvisionalTask, carrier *models.Carrier, serviceIDs []string, now time.Time) (*models.ReconcileResult, error) {
	created := &models.ScheduledTask{
		ID:             e.newID(),
		ExternalID:     task.ExternalID,
		StartTime:      task.StartTime.UTC(),
		EndTime:        task.EndTime.UTC(),
		TaskType:       task.TaskType,
		ImpactDuration: task.ImpactDuration,
		Description:    task.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if carrier != nil {
		created.CarrierID = &carrier.ID
	}

	if err := e.tasks.Insert(ctx, created); err != nil {
		return nil, err
	}
	added, err := e.tasks.LinkServices(ctx, created.ID, serviceIDs, now)
	if err != nil {
		return nil, err
	}

	overlapping, err := e.tasks.FindOverlapping(ctx, created.ID, serviceIDs, created.StartTime, created.EndTime)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		metrics.ReconcileOverlapTotal.Inc()
		e.logger.WithContext(ctx).WithFields(map[string]any{
			"task_id":     created.ID,
			"overlapping": overlapping,
		}).Warn("New task overlaps other tasks on shared services; kept independent")
	}

	return &models.ReconcileResult{
		Task:               created,
		Created:            true,
		LinkedServiceIDs:   added,
		AddedServiceIDs:    added,
		OverlappingTaskIDs: overlapping,
	}, nil
}

// Discrepancies names the fields where a provisional task disagrees with the stored one
func Discrepancies(stored *models.ScheduledTask, task *models.ProvisionalTask) []string {
	fields := []string{}
	if !stored.StartTime.Equal(task.StartTime) {
		fields = append(fields, "start_time")
	}
	if !stored.EndTime.Equal(task.EndTime) {
		fields = append(fields, "end_time")
	}
	if stored.TaskType != task.TaskType {
		fields = append(fields, "task_type")
	}
	return fields
}

func carrierID(carrier *models.Carrier) string {
	if carrier == nil {
		return ""
	}
	return carrier.ID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
