package extractor

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Field names used in extraction errors and logs
const (
	FieldCarrier        = "carrier"
	FieldExternalID     = "external_id"
	FieldStartTime      = "start_time"
	FieldEndTime        = "end_time"
	FieldTaskType       = "task_type"
	FieldImpactDuration = "impact_duration"
	FieldDescription    = "description"
	FieldServices       = "affected_services"
)

// fieldMatcher recognizes one field by its normalized label aliases.
// Continued fields also collect the unlabeled lines that follow them.
type fieldMatcher struct {
	field     string
	labels    []string
	continued bool
	separator string
}

// fieldMatchers is evaluated in order; the first matcher owning a label wins.
var fieldMatchers = []fieldMatcher{
	{field: FieldCarrier, labels: []string{"carrier", "proveedor", "partner"}},
	{field: FieldExternalID, labels: []string{
		"id", "id tarea", "id de tarea", "id carrier", "id del carrier", "ticket", "nro de tarea",
		"numero de tarea", "n de tarea", "referencia", "ref", "task id", "id mantenimiento",
		"id de mantenimiento", "codigo de tarea",
	}},
	{field: FieldStartTime, labels: []string{"inicio", "fecha de inicio", "fecha inicio", "hora de inicio", "start", "desde", "comienzo"}},
	{field: FieldEndTime, labels: []string{"fin", "fecha de fin", "fecha fin", "hora de fin", "end", "hasta", "finalizacion"}},
	{field: FieldTaskType, labels: []string{"tipo de tarea", "tipo", "tipo de trabajo", "tipo de mantenimiento", "trabajo"}},
	{field: FieldImpactDuration, labels: []string{
		"tiempo de afectacion", "afectacion", "duracion", "duracion de afectacion", "tiempo de corte", "impacto",
	}},
	{field: FieldDescription, labels: []string{"descripcion", "detalle", "motivo", "observaciones"}, continued: true, separator: " "},
	{field: FieldServices, labels: []string{
		"servicios afectados", "servicio afectado", "servicios", "servicio", "circuitos afectados",
		"circuito afectado", "enlaces afectados", "ids afectados",
	}, continued: true, separator: ", "},
}

var labelIndex = buildLabelIndex(fieldMatchers)

func buildLabelIndex(matchers []fieldMatcher) map[string]*fieldMatcher {
	index := make(map[string]*fieldMatcher)
	for i := range matchers {
		for _, label := range matchers[i].labels {
			if _, exists := index[label]; !exists {
				index[label] = &matchers[i]
			}
		}
	}
	return index
}

const maxLabelLength = 40

// splitLabeled splits "Label: value" at the first colon. Lines without a short
// label are not labeled lines.
func splitLabeled(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 || idx > maxLabelLength {
		return "", "", false
	}
	label = normalizers.Apply(line[:idx], "label")
	if label == "" {
		return "", "", false
	}
	return label, cleanValue(line[idx+1:]), true
}

// matchLine returns the matcher owning a labeled line, if any
func matchLine(line string) (*fieldMatcher, string, bool) {
	label, value, ok := splitLabeled(line)
	if !ok {
		return nil, "", false
	}
	matcher, ok := labelIndex[label]
	if !ok {
		return nil, "", false
	}
	return matcher, value, true
}

func cleanValue(s string) string {
	return strings.Trim(s, " \t*_•")
}

var tokenSeparators = regexp.MustCompile(`[,;]`)

// SplitServiceTokens splits an affected-services value on commas and semicolons.
// Tokens are trimmed and otherwise kept verbatim.
func SplitServiceTokens(value string) []string {
	parts := tokenSeparators.Split(value, -1)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
