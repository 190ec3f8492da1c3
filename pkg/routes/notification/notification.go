package notification

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/artifact"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/processor"
)

var validate = validator.New()

// MaxDocumentBytes caps uploaded documents
const MaxDocumentBytes = 10 << 20

type Processor interface {
	ProcessNotification(ctx context.Context, rawText string, carrierHint *string) (*models.ProcessResult, error)
	ProcessDocument(ctx context.Context, filename string, body []byte, carrierHint *string) (*models.ProcessResult, error)
	TaskDetail(ctx context.Context, taskID string) (*models.TaskDetail, error)
	Location() *time.Location
}

type ArtifactGenerator interface {
	Generate(ctx context.Context, detail *models.TaskDetail, client string) (*artifact.Artifact, error)
}

// Response is the processing result plus the operator summary
type Response struct {
	*models.ProcessResult
	Summary  string             `json:"summary"`
	Artifact *artifact.Artifact `json:"artifact,omitempty"`
}

type Handler struct {
	processor Processor
	artifacts ArtifactGenerator
	logger    ectologger.Logger
}

// NewHandler creates the notification handler. artifacts may be nil to disable ?artifact=true.
func NewHandler(processor Processor, artifacts ArtifactGenerator, logger ectologger.Logger) *Handler {
	return &Handler{processor: processor, artifacts: artifacts, logger: logger}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Process)
	g.POST("/document", h.ProcessDocument)
}

// Process handles a raw notification text
func (h *Handler) Process(c echo.Context) error {
	var req models.ProcessNotificationRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if req.Client != "" {
		ctx = fernctx.SetClient(ctx, req.Client)
	}

	result, err := h.processor.ProcessNotification(ctx, req.Text, req.CarrierHint)
	if err != nil {
		return err
	}
	return h.respond(ctx, c, result)
}

// ProcessDocument handles a multipart upload in the "file" field
func (h *Handler) ProcessDocument(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > MaxDocumentBytes {
		return httperror.NewHTTPError(http.StatusRequestEntityTooLarge, "document is too large").
			AddMetaValue("max_bytes", strconv.Itoa(MaxDocumentBytes))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "file could not be read")
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, MaxDocumentBytes))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "file could not be read")
	}

	ctx := c.Request().Context()
	if client := strings.TrimSpace(c.FormValue("client")); client != "" {
		ctx = fernctx.SetClient(ctx, client)
	}
	var hint *string
	if value := c.FormValue("carrier_hint"); value != "" {
		hint = &value
	}

	result, err := h.processor.ProcessDocument(ctx, fileHeader.Filename, body, hint)
	if err != nil {
		return err
	}
	return h.respond(ctx, c, result)
}

func (h *Handler) respond(ctx context.Context, c echo.Context, result *models.ProcessResult) error {
	resp := Response{
		ProcessResult: result,
		Summary:       processor.FormatSummary(result, h.processor.Location()),
	}

	if wantArtifact, _ := strconv.ParseBool(c.QueryParam("artifact")); wantArtifact && h.artifacts != nil {
		detail, err := h.processor.TaskDetail(ctx, result.Task.ID)
		if err != nil {
			return err
		}
		resp.Artifact, err = h.artifacts.Generate(ctx, detail, fernctx.GetClient(ctx))
		if err != nil {
			// the task is stored either way; the response just carries no artifact
			h.logger.WithContext(ctx).WithError(err).WithField("task_id", result.Task.ID).Error("Failed to generate artifact")
		}
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, resp)
}
