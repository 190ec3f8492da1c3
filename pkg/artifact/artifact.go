// Package artifact renders the customer-facing notice for a reconciled task and writes it to disk
package artifact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	Greeting        = "Estimado Cliente, nuestro partner nos da aviso de la siguiente tarea programada:"
	DefaultCategory = "Tarea"
	DefaultClient   = "METROTEL"

	dateLayout = "02/01/2006 15:04 MST"
)

// Notice is everything a writer needs to render one task
type Notice struct {
	Task        *models.ScheduledTask
	CarrierName *string
	Services    []models.Service
	Client      string
	// Location is the zone dates are shown in
	Location *time.Location
}

// Writer produces one artifact file for a notice and returns the path of the primary file
type Writer interface {
	Name() string
	Write(ctx context.Context, notice *Notice, dir, baseName string) (string, error)
}

// Body is the plain-text rendering every writer shares. Its line order and labels are stable:
// greeting, optional carrier, start, end, type, optional impact, optional description, services.
func Body(notice *Notice) string {
	loc := notice.Location
	if loc == nil {
		loc = time.UTC
	}
	task := notice.Task

	lines := []string{Greeting}
	if notice.CarrierName != nil && *notice.CarrierName != "" {
		lines = append(lines, "Carrier: "+*notice.CarrierName)
	}
	lines = append(lines,
		"Inicio: "+task.StartTime.In(loc).Format(dateLayout),
		"Fin: "+task.EndTime.In(loc).Format(dateLayout),
		"Tipo de tarea: "+task.TaskType,
	)
	if task.ImpactDuration != nil && *task.ImpactDuration != "" {
		lines = append(lines, "Tiempo de afectación: "+*task.ImpactDuration)
	}
	if task.Description != nil && *task.Description != "" {
		lines = append(lines, "Descripción: "+*task.Description)
	}

	ids := ectolinq.Map(notice.Services, models.Service.DisplayID)
	lines = append(lines, "Servicios afectados: "+strings.Join(ids, ", "))

	return strings.Join(lines, "\n")
}

func Subject(client string) string {
	if client == "" {
		client = DefaultClient
	}
	return "Aviso de tarea programada - " + client
}

// FileName builds "<category>_<taskID>_<ddmmyyyy>_<nn>"
func FileName(category, taskID, day string, n int64) string {
	return fmt.Sprintf("%s_%s_%s_%02d", category, taskID, day, n)
}

// Day is the counter key for t in loc
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02012006")
}
