package task

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/artifact"
	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
)

var validate = validator.New()

type Processor interface {
	TaskDetail(ctx context.Context, taskID string) (*models.TaskDetail, error)
	OverrideCarrier(ctx context.Context, taskID, carrierName string) (*models.ScheduledTask, error)
}

type ArtifactGenerator interface {
	Render(ctx context.Context, detail *models.TaskDetail, client string) (string, error)
	Generate(ctx context.Context, detail *models.TaskDetail, client string) (*artifact.Artifact, error)
}

type Handler struct {
	processor Processor
	artifacts ArtifactGenerator
}

func NewHandler(processor Processor, artifacts ArtifactGenerator) *Handler {
	return &Handler{processor: processor, artifacts: artifacts}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/:id", h.Get)
	g.PUT("/:id/carrier", h.OverrideCarrier)
	g.GET("/:id/artifact", h.RenderArtifact)
	g.POST("/:id/artifact", h.GenerateArtifact)
}

// Get returns a task with its carrier and linked services
func (h *Handler) Get(c echo.Context) error {
	detail, err := h.processor.TaskDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// OverrideCarrier assigns a carrier to the task by name
func (h *Handler) OverrideCarrier(c echo.Context) error {
	var req models.OverrideCarrierRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.processor.OverrideCarrier(c.Request().Context(), c.Param("id"), req.CarrierName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// RenderArtifact returns the plain-text notice for the task
func (h *Handler) RenderArtifact(c echo.Context) error {
	ctx := c.Request().Context()
	detail, err := h.processor.TaskDetail(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	text, err := h.artifacts.Render(ctx, detail, fernctx.GetClient(ctx))
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, text)
}

// GenerateArtifact writes the notice file for the task
func (h *Handler) GenerateArtifact(c echo.Context) error {
	ctx := c.Request().Context()
	detail, err := h.processor.TaskDetail(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	written, err := h.artifacts.Generate(ctx, detail, fernctx.GetClient(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, written)
}
