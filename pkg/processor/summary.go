package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/models"
)

const summaryDateLayout = "02/01/2006 15:04 MST"

// FormatSummary renders the operator-facing summary of a processed notification. Times are shown in loc.
func FormatSummary(result *models.ProcessResult, loc *time.Location) string {
	if result == nil || result.Task == nil {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	task := result.Task

	var b strings.Builder
	if result.Created {
		fmt.Fprintf(&b, "Tarea Registrada ID: %s\n", task.ID)
	} else {
		fmt.Fprintf(&b, "La tarea %s ya estaba registrada (ID BD: %s)\n", orDefault(task.ExternalID, "N/D"), task.ID)
	}
	fmt.Fprintf(&b, "ID Carrier: %s\n", orDefault(task.ExternalID, "N/D"))
	fmt.Fprintf(&b, "Carrier: %s\n", orDefault(result.ResolvedCarrierName, "Sin carrier"))
	fmt.Fprintf(&b, "Tipo: %s\n", task.TaskType)
	fmt.Fprintf(&b, "Inicio: %s\n", task.StartTime.In(loc).Format(summaryDateLayout))
	fmt.Fprintf(&b, "Fin: %s\n", task.EndTime.In(loc).Format(summaryDateLayout))
	if task.ImpactDuration != nil {
		fmt.Fprintf(&b, "Afectación: %s\n", *task.ImpactDuration)
	}
	if task.Description != nil {
		fmt.Fprintf(&b, "Descripción: %s\n", *task.Description)
	}

	ids := ectolinq.Map(result.Services, models.Service.DisplayID)
	fmt.Fprintf(&b, "Servicios afectados: %s\n", joinOr(ids, "ninguno"))
	if len(result.PendingServiceTokens) > 0 {
		fmt.Fprintf(&b, "Servicios pendientes: %s\n", strings.Join(result.PendingServiceTokens, ", "))
	}
	if len(result.Discrepancies) > 0 {
		fmt.Fprintf(&b, "Diferencias con la tarea registrada: %s\n", strings.Join(result.Discrepancies, ", "))
	}
	if len(result.OverlappingTaskIDs) > 0 {
		fmt.Fprintf(&b, "Tareas superpuestas: %s\n", strings.Join(result.OverlappingTaskIDs, ", "))
	}
	return b.String()
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
