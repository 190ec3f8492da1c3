package artifact

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/testutil"
	"github.com/Ramsey-B/fern/pkg/document"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/models"
)

var start = time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

func testNotice() *Notice {
	return &Notice{
		Task: &models.ScheduledTask{
			ID:        "task-1",
			StartTime: start,
			EndTime:   start.Add(4 * time.Hour),
			TaskType:  "Mantenimiento",
		},
		CarrierName: testutil.Ptr("Acme"),
		Services: []models.Service{
			{ID: "svc-a", CarrierSideID: testutil.Ptr("10")},
			{ID: "svc-b", CarrierSideID: testutil.Ptr("20")},
		},
		Location: extractor.DefaultLocation,
	}
}

func TestBody(t *testing.T) {
	full := testNotice()
	full.Task.ImpactDuration = testutil.Ptr("30 minutos")
	full.Task.Description = testutil.Ptr("Cambio de placa")

	noCarrier := testNotice()
	noCarrier.CarrierName = nil

	tests := []struct {
		name   string
		notice *Notice
		want   []string
	}{
		{
			name:   "carrier and services",
			notice: testNotice(),
			want: []string{
				Greeting,
				"Carrier: Acme",
				"Inicio: 15/10/2026 08:00 UTC-3",
				"Fin: 15/10/2026 12:00 UTC-3",
				"Tipo de tarea: Mantenimiento",
				"Servicios afectados: 10, 20",
			},
		},
		{
			name:   "optional lines",
			notice: full,
			want: []string{
				Greeting,
				"Carrier: Acme",
				"Inicio: 15/10/2026 08:00 UTC-3",
				"Fin: 15/10/2026 12:00 UTC-3",
				"Tipo de tarea: Mantenimiento",
				"Tiempo de afectación: 30 minutos",
				"Descripción: Cambio de placa",
				"Servicios afectados: 10, 20",
			},
		},
		{
			name:   "no carrier",
			notice: noCarrier,
			want: []string{
				Greeting,
				"Inicio: 15/10/2026 08:00 UTC-3",
				"Fin: 15/10/2026 12:00 UTC-3",
				"Tipo de tarea: Mantenimiento",
				"Servicios afectados: 10, 20",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strings.Split(Body(tt.notice), "\n"))
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Tarea_task-1_15102026_03", FileName("Tarea", "task-1", "15102026", 3))
	assert.Equal(t, "Tarea_task-1_15102026_120", FileName("Tarea", "task-1", "15102026", 120))

	// 01:00 UTC is still the previous day at UTC-3
	assert.Equal(t, "14102026", Day(time.Date(2026, 10, 15, 1, 0, 0, 0, time.UTC), extractor.DefaultLocation))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Aviso de tarea programada - METROTEL", Subject(""))
	assert.Equal(t, "Aviso de tarea programada - Acme SA", Subject("Acme SA"))
}

func TestPlainTextWriter(t *testing.T) {
	dir := t.TempDir()

	path, err := PlainTextWriter{}.Write(context.Background(), testNotice(), dir, "Tarea_task-1_15102026_01")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Tarea_task-1_15102026_01.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Body(testNotice()), string(data))
}

func TestNativeWriter(t *testing.T) {
	dir := t.TempDir()
	signature := filepath.Join(dir, "firma.txt")
	require.NoError(t, os.WriteFile(signature, []byte("Equipo NOC\n"), 0o644))

	writer := NewNativeWriter(NativeConfig{From: "NOC <noc@example.com>", SignaturePath: signature}, testutil.NopLogger())
	require.NoError(t, writer.Probe())

	notice := testNotice()
	notice.Client = "Acme SA"
	path, err := writer.Write(context.Background(), notice, dir, "Tarea_task-1_15102026_01")
	require.NoError(t, err)
	assert.Equal(t, ".eml", filepath.Ext(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Aviso de tarea programada - Acme SA", subject)
	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "noc@example.com", from[0].Address)
	mr.Close()

	body, err := document.ReadEmail(raw)
	require.NoError(t, err)
	assert.Contains(t, body, "Servicios afectados: 10, 20")
	assert.Contains(t, body, "Equipo NOC")

	copyText, err := os.ReadFile(filepath.Join(dir, "Tarea_task-1_15102026_01.txt"))
	require.NoError(t, err)
	assert.Equal(t, Body(notice)+"\n\nEquipo NOC", string(copyText))
}

func TestNativeWriter_ProbeRejectsBadSender(t *testing.T) {
	writer := NewNativeWriter(NativeConfig{From: "not an address"}, testutil.NopLogger())
	assert.Error(t, writer.Probe())
}
