package extractor

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/errors"
)

const fullNotification = `Estimados,

Les informamos la siguiente tarea programada.

Carrier: Telecom Argentina
ID de tarea: TKT-4512
Inicio: 15/10/2026 08:00
Fin: 15/10/2026 12:30
Tipo de tarea: Mantenimiento preventivo
Tiempo de afectación: 30 minutos
Descripción: Reemplazo de placa en nodo Córdoba
Servicios afectados: 101, X9; 2044

Saludos.`

func TestExtract_AllFields(t *testing.T) {
	task, err := New(nil).Extract(fullNotification)
	require.NoError(t, err)

	require.NotNil(t, task.CarrierName)
	assert.Equal(t, "Telecom Argentina", *task.CarrierName)
	require.NotNil(t, task.ExternalID)
	assert.Equal(t, "TKT-4512", *task.ExternalID)
	assert.Equal(t, time.Date(2026, 10, 15, 8, 0, 0, 0, DefaultLocation), task.StartTime)
	assert.Equal(t, time.Date(2026, 10, 15, 12, 30, 0, 0, DefaultLocation), task.EndTime)
	assert.Equal(t, "Mantenimiento preventivo", task.TaskType)
	require.NotNil(t, task.ImpactDuration)
	assert.Equal(t, "30 minutos", *task.ImpactDuration)
	require.NotNil(t, task.Description)
	assert.Equal(t, "Reemplazo de placa en nodo Córdoba", *task.Description)
	assert.Equal(t, []string{"101", "X9", "2044"}, task.ServiceTokens)
}

func TestExtract_OptionalFieldsAbsent(t *testing.T) {
	text := "inicio: 01/02/2026\nFIN: 02/02/2026 05:00\ntipo: Corte\nservicios afectados: A1"

	task, err := New(nil).Extract(text)
	require.NoError(t, err)

	assert.Nil(t, task.CarrierName)
	assert.Nil(t, task.ExternalID)
	assert.Nil(t, task.ImpactDuration)
	assert.Nil(t, task.Description)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, DefaultLocation), task.StartTime)
	assert.Equal(t, []string{"A1"}, task.ServiceTokens)
}

func TestExtract_MissingFields(t *testing.T) {
	base := map[string]string{
		FieldStartTime: "Inicio: 15/10/2026 08:00",
		FieldEndTime:   "Fin: 15/10/2026 10:00",
		FieldTaskType:  "Tipo de tarea: Mantenimiento",
		FieldServices:  "Servicios afectados: 101",
	}
	order := []string{FieldStartTime, FieldEndTime, FieldTaskType, FieldServices}

	for _, omitted := range order {
		t.Run(omitted, func(t *testing.T) {
			text := "Carrier: Acme\n"
			for _, field := range order {
				if field != omitted {
					text += base[field] + "\n"
				}
			}

			_, err := New(nil).Extract(text)
			require.Error(t, err)

			var extractionErr *errors.ExtractionError
			require.True(t, stderrors.As(err, &extractionErr))
			assert.Equal(t, errors.MissingField, extractionErr.Kind)
			assert.Equal(t, omitted, extractionErr.Field)
		})
	}
}

func TestExtract_UnparseableDate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		value string
	}{
		{"no date", "Inicio: mañana temprano\nFin: 15/10/2026\nTipo: Corte\nServicios: 1", "mañana temprano"},
		{"bare hour", "Inicio: 15/10/2026 22\nFin: 16/10/2026\nTipo: Corte\nServicios: 1", "15/10/2026 22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Extract(tt.text)

			var extractionErr *errors.ExtractionError
			require.True(t, stderrors.As(err, &extractionErr))
			assert.Equal(t, errors.UnparseableDate, extractionErr.Kind)
			assert.Equal(t, FieldStartTime, extractionErr.Field)
			assert.Equal(t, tt.value, extractionErr.Value)
		})
	}
}

func TestExtract_EmptyServiceListIsMissing(t *testing.T) {
	text := "Inicio: 15/10/2026\nFin: 16/10/2026\nTipo: Corte\nServicios afectados: ; ,"

	_, err := New(nil).Extract(text)

	var extractionErr *errors.ExtractionError
	require.True(t, stderrors.As(err, &extractionErr))
	assert.Equal(t, FieldServices, extractionErr.Field)
}

func TestExtract_LabelTolerance(t *testing.T) {
	text := `  *INICIO* :  15-10-2026 08:00 hs
- fin:15.10.2026 09:15
• Tipo de Tarea:	Emergencia
SERVICIOS AFECTADOS:
  - 101
  - 102; 103

Descripcion: primera linea
segunda linea`

	task, err := New(nil).Extract(text)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 15, 8, 0, 0, 0, DefaultLocation), task.StartTime)
	assert.Equal(t, time.Date(2026, 10, 15, 9, 15, 0, 0, DefaultLocation), task.EndTime)
	assert.Equal(t, "Emergencia", task.TaskType)
	assert.Equal(t, []string{"101", "102", "103"}, task.ServiceTokens)
	require.NotNil(t, task.Description)
	assert.Equal(t, "primera linea segunda linea", *task.Description)
}

func TestExtract_FirstLabeledValueWins(t *testing.T) {
	text := "Inicio: 15/10/2026 08:00\nInicio: 20/10/2026 08:00\nFin: 21/10/2026\nTipo: Corte\nServicios: 1"

	task, err := New(nil).Extract(text)
	require.NoError(t, err)
	assert.Equal(t, 15, task.StartTime.Day())
}

func TestExtract_ConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	text := "Inicio: 15/10/2026 08:00\nFin: 15/10/2026 09:00 UTC\nTipo: Corte\nServicios: 1"

	task, err := New(loc).Extract(text)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 15, 13, 0, 0, 0, time.UTC), task.StartTime.UTC())
	assert.Equal(t, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), task.EndTime.UTC())
}

func TestSplitServiceTokens(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"101, X9", []string{"101", "X9"}},
		{"101;X9 ; 55", []string{"101", "X9", "55"}},
		{" AR-BUE-0001 ,, ", []string{"AR-BUE-0001"}},
		{"abc DEF", []string{"abc DEF"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitServiceTokens(tt.input))
		})
	}
}

func TestExtract_IsoTimestamps(t *testing.T) {
	text := "Inicio: 2026-10-15T10:00:00+02:00\nFin: 2026-10-15T12:00:00Z\nTipo: Corte\nServicios: 1"

	task, err := New(nil).Extract(text)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC), task.StartTime.UTC())
	assert.Equal(t, time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC), task.EndTime.UTC())
}
