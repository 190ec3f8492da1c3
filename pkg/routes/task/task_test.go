package task

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/artifact"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeProcessor struct {
	carrierName string
}

func (p *fakeProcessor) TaskDetail(_ context.Context, taskID string) (*models.TaskDetail, error) {
	if taskID != "task-1" {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return &models.TaskDetail{Task: &models.ScheduledTask{ID: taskID, TaskType: "Corte"}}, nil
}

func (p *fakeProcessor) OverrideCarrier(_ context.Context, taskID, carrierName string) (*models.ScheduledTask, error) {
	p.carrierName = carrierName
	if carrierName == "Taken" {
		return nil, httperror.NewHTTPError(http.StatusConflict, "another task already holds this external id for the carrier")
	}
	return &models.ScheduledTask{ID: taskID, CarrierID: testutil.Ptr("c1")}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Render(_ context.Context, detail *models.TaskDetail, client string) (string, error) {
	return "Tipo de tarea: " + detail.Task.TaskType + "\n" + client, nil
}

func (fakeGenerator) Generate(_ context.Context, detail *models.TaskDetail, _ string) (*artifact.Artifact, error) {
	return &artifact.Artifact{BaseName: detail.Task.ID}, nil
}

func newServer(p *fakeProcessor) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testutil.NopLogger())
	e.Use(middleware.Context("METROTEL"))
	NewHandler(p, fakeGenerator{}).Register(e.Group("/api/v1/tasks"))
	return e
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "get", method: http.MethodGet, path: "/api/v1/tasks/task-1", wantStatus: http.StatusOK, wantBody: `"id":"task-1"`},
		{name: "get missing", method: http.MethodGet, path: "/api/v1/tasks/nope", wantStatus: http.StatusNotFound},
		{name: "override", method: http.MethodPut, path: "/api/v1/tasks/task-1/carrier", body: `{"carrier_name":"Acme"}`, wantStatus: http.StatusOK, wantBody: `"carrier_id":"c1"`},
		{name: "override without name", method: http.MethodPut, path: "/api/v1/tasks/task-1/carrier", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "override conflict", method: http.MethodPut, path: "/api/v1/tasks/task-1/carrier", body: `{"carrier_name":"Taken"}`, wantStatus: http.StatusConflict},
		{name: "render artifact", method: http.MethodGet, path: "/api/v1/tasks/task-1/artifact", wantStatus: http.StatusOK, wantBody: "Tipo de tarea: Corte\nMETROTEL"},
		{name: "generate artifact", method: http.MethodPost, path: "/api/v1/tasks/task-1/artifact", wantStatus: http.StatusCreated, wantBody: `"base_name":"task-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			newServer(&fakeProcessor{}).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}
