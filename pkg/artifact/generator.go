package artifact

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	FormatAuto   = "auto"
	FormatNative = "native"
	FormatText   = "text"
)

type CarrierGetter interface {
	Get(ctx context.Context, id string) (*models.Carrier, error)
}

type Config struct {
	Dir string
	// Format is auto, native or text. auto probes the native writer and falls back to text.
	Format   string
	Category string
	Native   NativeConfig
	Location *time.Location
}

// Artifact describes a written file
type Artifact struct {
	Path     string `json:"path"`
	BaseName string `json:"base_name"`
	Writer   string `json:"writer"`
	Fallback bool   `json:"fallback"`
}

// Generator picks a writer once at startup and falls back to plain text when it fails
type Generator struct {
	cfg      Config
	writer   Writer
	fallback Writer
	counter  Counter
	carriers CarrierGetter
	logger   ectologger.Logger
	now      func() time.Time
}

func NewGenerator(cfg Config, counter Counter, carriers CarrierGetter, logger ectologger.Logger) (*Generator, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Category == "" {
		cfg.Category = DefaultCategory
	}
	if cfg.Format == "" {
		cfg.Format = FormatAuto
	}

	g := &Generator{
		cfg:      cfg,
		fallback: PlainTextWriter{},
		counter:  counter,
		carriers: carriers,
		logger:   logger,
		now:      time.Now,
	}

	switch cfg.Format {
	case FormatText:
		g.writer = PlainTextWriter{}
	case FormatNative, FormatAuto:
		native := NewNativeWriter(cfg.Native, logger)
		if err := native.Probe(); err != nil {
			if cfg.Format == FormatNative {
				return nil, fmt.Errorf("native artifact writer unavailable: %w", err)
			}
			logger.WithError(err).Warn("Native artifact writer unavailable, using plain text")
			g.writer = PlainTextWriter{}
		} else {
			g.writer = native
		}
	default:
		return nil, fmt.Errorf("unknown artifact format %q", cfg.Format)
	}

	logger.WithField("writer", g.writer.Name()).Info("Artifact writer selected")
	return g, nil
}

// Writer names the selected writer
func (g *Generator) Writer() string {
	return g.writer.Name()
}

// Notice assembles the render input for a task. When the task has no carrier, the
// carrier is taken from the services if they all belong to the same one.
func (g *Generator) Notice(ctx context.Context, detail *models.TaskDetail, client string) (*Notice, error) {
	notice := &Notice{
		Task:     detail.Task,
		Services: detail.Services,
		Client:   client,
		Location: g.cfg.Location,
	}
	if detail.Carrier != nil {
		notice.CarrierName = &detail.Carrier.Name
		return notice, nil
	}

	ownerID := singleOwner(detail.Services)
	if ownerID == "" || g.carriers == nil {
		return notice, nil
	}
	carrier, err := g.carriers.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	notice.CarrierName = &carrier.Name
	return notice, nil
}

// Render returns the plain-text body for a task without writing anything
func (g *Generator) Render(ctx context.Context, detail *models.TaskDetail, client string) (string, error) {
	notice, err := g.Notice(ctx, detail, client)
	if err != nil {
		return "", err
	}
	return Body(notice), nil
}

// Generate writes the artifact for a task into the configured directory
func (g *Generator) Generate(ctx context.Context, detail *models.TaskDetail, client string) (artifact *Artifact, err error) {
	ctx, span := tracing.StartSpan(ctx, "artifact.Generator.Generate")
	defer span.End()
	defer func() { tracing.RecordError(span, err) }()

	log := g.logger.WithContext(ctx).WithField("task_id", detail.Task.ID)

	notice, err := g.Notice(ctx, detail, client)
	if err != nil {
		return nil, err
	}

	day := Day(g.now(), g.cfg.Location)
	n, err := g.counter.Next(ctx, g.cfg.Category, day)
	if err != nil {
		if !errors.IsStoreUnavailable(err) {
			err = errors.NewStoreUnavailableError("next artifact number", err)
		}
		return nil, err
	}
	baseName := FileName(g.cfg.Category, detail.Task.ID, day, n)

	if err = os.MkdirAll(g.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	artifact = &Artifact{BaseName: baseName, Writer: g.writer.Name()}
	artifact.Path, err = g.writer.Write(ctx, notice, g.cfg.Dir, baseName)
	if err != nil && g.writer.Name() != g.fallback.Name() {
		metrics.ArtifactsTotal.WithLabelValues(g.writer.Name(), "failed").Inc()
		log.WithError(err).Warn("Artifact writer failed, falling back to plain text")

		artifact.Writer = g.fallback.Name()
		artifact.Fallback = true
		artifact.Path, err = g.fallback.Write(ctx, notice, g.cfg.Dir, baseName)
	}
	if err != nil {
		metrics.ArtifactsTotal.WithLabelValues(artifact.Writer, "failed").Inc()
		log.WithError(err).Error("Failed to write artifact")
		return nil, err
	}

	metrics.ArtifactsTotal.WithLabelValues(artifact.Writer, "written").Inc()
	log.WithFields(map[string]any{"path": artifact.Path, "writer": artifact.Writer}).Info("Artifact written")
	return artifact, nil
}

func singleOwner(services []models.Service) string {
	owner := ""
	for _, svc := range services {
		if svc.CarrierID == nil {
			continue
		}
		if owner != "" && owner != *svc.CarrierID {
			return ""
		}
		owner = *svc.CarrierID
	}
	return owner
}
