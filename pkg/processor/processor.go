// Package processor is the single entry point that turns a notification into a reconciled task
package processor

import (
	"context"
	"database/sql"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

type CarrierResolver interface {
	Resolve(ctx context.Context, candidate *string) (*models.Carrier, error)
	Infer(ctx context.Context, services []models.Service) (*models.Carrier, error)
}

type ServiceMatcher interface {
	Match(ctx context.Context, tokens []string) ([]models.Service, []string, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, task *models.ProvisionalTask, carrier *models.Carrier, services []models.Service) (*models.ReconcileResult, error)
}

type DocumentReader interface {
	Read(ctx context.Context, filename string, body []byte) (string, error)
}

type TaskStore interface {
	Get(ctx context.Context, id string) (*models.ScheduledTask, error)
	FindByExternalID(ctx context.Context, externalID, carrierID string) (*models.ScheduledTask, error)
	UpdateCarrier(ctx context.Context, taskID, carrierID string, now time.Time) error
}

type TaskServiceLister interface {
	ListByTask(ctx context.Context, taskID string) ([]models.Service, error)
}

type CarrierGetter interface {
	Get(ctx context.Context, id string) (*models.Carrier, error)
}

type TxBeginner interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

type Dependencies struct {
	Extractor    *extractor.Extractor
	Carriers     CarrierResolver
	Services     ServiceMatcher
	Engine       Reconciler
	Documents    DocumentReader
	DB           TxBeginner
	Tasks        TaskStore
	TaskServices TaskServiceLister
	CarrierStore CarrierGetter
	Emitter      *events.Emitter
}

type Config struct {
	// StoreTimeout bounds the resolver and matcher queries
	StoreTimeout time.Duration
}

type Processor struct {
	deps   Dependencies
	cfg    Config
	logger ectologger.Logger
	now    func() time.Time
}

func New(deps Dependencies, cfg Config, logger ectologger.Logger) *Processor {
	if deps.Extractor == nil {
		deps.Extractor = extractor.New(nil)
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Processor{deps: deps, cfg: cfg, logger: logger, now: time.Now}
}

// Location is the zone dates without an explicit offset are read in
func (p *Processor) Location() *time.Location {
	return p.deps.Extractor.Location()
}

// ProcessNotification extracts, resolves, matches and reconciles one notification.
// carrierHint stands in for the carrier when the text has no Carrier line. When
// neither resolves, the carrier is inferred from the matched services.
func (p *Processor) ProcessNotification(ctx context.Context, rawText string, carrierHint *string) (result *models.ProcessResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessNotification")
	defer span.End()

	source := fernctx.GetSource(ctx)
	if source == "" {
		source = "api"
	}
	start := p.now()
	defer func() {
		metrics.ProcessingDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
		metrics.NotificationsTotal.WithLabelValues(source, outcome(result, err)).Inc()
		tracing.RecordError(span, err)
	}()

	log := p.logger.WithContext(ctx).WithFields(fernctx.LogFields(ctx))

	task, err := p.deps.Extractor.Extract(rawText)
	if err != nil {
		var extractionErr *errors.ExtractionError
		if stderrors.As(err, &extractionErr) {
			metrics.ExtractionErrorsTotal.WithLabelValues(string(extractionErr.Kind), extractionErr.Field).Inc()
		}
		log.WithError(err).Warn("Notification could not be extracted")
		return nil, err
	}

	candidate := task.CarrierName
	if candidate == nil {
		candidate = trimmed(carrierHint)
	}

	carrier, services, pending, err := p.resolveAndMatch(ctx, candidate, task.ServiceTokens)
	if err != nil {
		log.WithError(err).Error("Failed to resolve carrier or services")
		return nil, err
	}

	// only a Carrier line in the text rules out inference; an unresolved hint does not
	if carrier == nil && task.CarrierName == nil {
		carrier, err = p.inferCarrier(ctx, services)
		if err != nil {
			return nil, err
		}
		if carrier != nil {
			log.WithField("carrier_id", carrier.ID).Info("Carrier inferred from affected services")
		}
	}
	if carrier == nil {
		metrics.UnresolvedCarriersTotal.Inc()
	}
	metrics.PendingServiceTokensTotal.Add(float64(len(pending)))

	reconciled, err := p.deps.Engine.Reconcile(ctx, task, carrier, services)
	if err != nil {
		return nil, err
	}

	linked := services
	if !reconciled.Created {
		linked, err = p.listServices(ctx, reconciled.Task.ID)
		if err != nil {
			return nil, err
		}
	}

	result = &models.ProcessResult{
		Task:                 reconciled.Task,
		Created:              reconciled.Created,
		PendingServiceTokens: pending,
		CarrierCandidate:     candidate,
		Services:             linked,
		Discrepancies:        reconciled.Discrepancies,
		OverlappingTaskIDs:   reconciled.OverlappingTaskIDs,
	}
	if carrier != nil {
		result.ResolvedCarrierName = &carrier.Name
	}

	p.deps.Emitter.Processed(ctx, result)

	log.WithFields(map[string]any{
		"task_id": result.Task.ID,
		"created": result.Created,
		"pending": len(pending),
	}).Info("Processed notification")
	return result, nil
}

// ProcessDocument reads an uploaded file and processes its text
func (p *Processor) ProcessDocument(ctx context.Context, filename string, body []byte, carrierHint *string) (*models.ProcessResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessDocument")
	defer span.End()

	text, err := p.deps.Documents.Read(ctx, filename, body)
	if err != nil {
		source := fernctx.GetSource(ctx)
		if source == "" {
			source = "document"
		}
		metrics.NotificationsTotal.WithLabelValues(source, "unreadable").Inc()
		tracing.RecordError(span, err)
		return nil, err
	}
	return p.ProcessNotification(ctx, text, carrierHint)
}

// resolveAndMatch runs the carrier resolver and the service matcher concurrently
func (p *Processor) resolveAndMatch(ctx context.Context, candidate *string, tokens []string) (*models.Carrier, []models.Service, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	var (
		carrier  *models.Carrier
		services []models.Service
		pending  []string
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		carrier, err = p.deps.Carriers.Resolve(egCtx, candidate)
		return err
	})
	eg.Go(func() error {
		var err error
		services, pending, err = p.deps.Services.Match(egCtx, tokens)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, nil, storeError("resolve and match", err)
	}
	return carrier, services, pending, nil
}

func (p *Processor) inferCarrier(ctx context.Context, services []models.Service) (*models.Carrier, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	carrier, err := p.deps.Carriers.Infer(ctx, services)
	if err != nil {
		return nil, storeError("infer carrier", err)
	}
	return carrier, nil
}

func (p *Processor) listServices(ctx context.Context, taskID string) ([]models.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	services, err := p.deps.TaskServices.ListByTask(ctx, taskID)
	if err != nil {
		return nil, storeError("list task services", err)
	}
	return services, nil
}

// OverrideCarrier assigns a carrier to an existing task by name. The row is updated in place;
// a collision with another task holding the same (external id, carrier) is a 409.
func (p *Processor) OverrideCarrier(ctx context.Context, taskID, carrierName string) (task *models.ScheduledTask, err error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.OverrideCarrier")
	defer span.End()
	defer func() { tracing.RecordError(span, err) }()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{"task_id": taskID, "carrier_name": carrierName})

	carrier, err := p.deps.Carriers.Resolve(ctx, trimmed(&carrierName))
	if err != nil {
		return nil, storeError("resolve carrier", err)
	}
	if carrier == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "carrier not found").AddMetaValue("carrier_name", carrierName)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	ctx, tx, err := p.deps.DB.GetTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStoreUnavailableError("begin override", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	task, err = p.deps.Tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CarrierID != nil && *task.CarrierID == carrier.ID {
		err = tx.Commit(ctx)
		return task, err
	}

	if task.ExternalID != nil {
		holder, findErr := p.deps.Tasks.FindByExternalID(ctx, *task.ExternalID, carrier.ID)
		if findErr != nil {
			return nil, findErr
		}
		if holder != nil && holder.ID != task.ID {
			err = conflict(task, holder.ID, carrier)
			return nil, err
		}
	}

	now := p.now().UTC()
	if err = p.deps.Tasks.UpdateCarrier(ctx, task.ID, carrier.ID, now); err != nil {
		if errors.IsDuplicateRace(err) {
			err = conflict(task, "", carrier)
		}
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, errors.NewStoreUnavailableError("commit override", err)
	}

	task.CarrierID = &carrier.ID
	task.UpdatedAt = now
	log.WithField("carrier_id", carrier.ID).Info("Task carrier overridden")
	p.deps.Emitter.CarrierOverridden(ctx, task)
	return task, nil
}

// TaskDetail loads a task with its carrier and linked services
func (p *Processor) TaskDetail(ctx context.Context, taskID string) (*models.TaskDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.TaskDetail")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	defer cancel()

	task, err := p.deps.Tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	detail := &models.TaskDetail{Task: task}
	if task.CarrierID != nil {
		detail.Carrier, err = p.deps.CarrierStore.Get(ctx, *task.CarrierID)
		if err != nil {
			return nil, err
		}
	}
	detail.Services, err = p.deps.TaskServices.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func conflict(task *models.ScheduledTask, holderID string, carrier *models.Carrier) error {
	httpErr := httperror.NewHTTPError(http.StatusConflict, "another task already holds this external id for the carrier").
		AddMetaValue("task_id", task.ID).
		AddMetaValue("carrier_id", carrier.ID)
	if holderID != "" {
		httpErr = httpErr.AddMetaValue("conflicting_task_id", holderID)
	}
	return httpErr
}

func storeError(op string, err error) error {
	if errors.IsStoreUnavailable(err) || httperror.IsHTTPError(err) {
		return err
	}
	return errors.NewStoreUnavailableError(op, err)
}

func outcome(result *models.ProcessResult, err error) string {
	switch {
	case err == nil && result != nil && result.Created:
		return "created"
	case err == nil:
		return "merged"
	case errors.IsExtractionError(err):
		return "extraction_failed"
	case errors.IsStoreUnavailable(err):
		return "store_unavailable"
	default:
		return "failed"
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	value := strings.TrimSpace(*s)
	if value == "" {
		return nil
	}
	return &value
}
