package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	utcMinus3 := DefaultLocation

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"day first slash", "05/03/2026 14:45", time.Date(2026, 3, 5, 14, 45, 0, 0, utcMinus3)},
		{"day first dash no time", "05-03-2026", time.Date(2026, 3, 5, 0, 0, 0, 0, utcMinus3)},
		{"two digit year", "5/3/26 7:05", time.Date(2026, 3, 5, 7, 5, 0, 0, utcMinus3)},
		{"seconds", "05/03/2026 14:45:30", time.Date(2026, 3, 5, 14, 45, 30, 0, utcMinus3)},
		{"hs suffix", "05/03/2026 22:00 hs", time.Date(2026, 3, 5, 22, 0, 0, 0, utcMinus3)},
		{"pm", "05/03/2026 2:10 pm", time.Date(2026, 3, 5, 14, 10, 0, 0, utcMinus3)},
		{"iso", "2026-03-05 14:45", time.Date(2026, 3, 5, 14, 45, 0, 0, utcMinus3)},
		{"iso with T", "2026-03-05T14:45:00", time.Date(2026, 3, 5, 14, 45, 0, 0, utcMinus3)},
		{"spanish month", "Jueves 5 de marzo de 2026, 09:00", time.Date(2026, 3, 5, 9, 0, 0, 0, utcMinus3)},
		{"spanish month accents", "15 de Octubre del 2026 a las 23.30", time.Date(2026, 10, 15, 23, 30, 0, 0, utcMinus3)},
		{"english month", "5 March 2026 09:00", time.Date(2026, 3, 5, 9, 0, 0, 0, utcMinus3)},
		{"hour only hs", "05/03/2026 22hs", time.Date(2026, 3, 5, 22, 0, 0, 0, utcMinus3)},
		{"hour only spaced hs", "05/03/2026 22 hs", time.Date(2026, 3, 5, 22, 0, 0, 0, utcMinus3)},
		{"hour only hrs", "05/03/2026 a las 7 hrs", time.Date(2026, 3, 5, 7, 0, 0, 0, utcMinus3)},
		{"hour only pm", "05/03/2026 3 pm", time.Date(2026, 3, 5, 15, 0, 0, 0, utcMinus3)},
		{"time range keeps first clock", "05/03/2026 08:00-12:00", time.Date(2026, 3, 5, 8, 0, 0, 0, utcMinus3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, nil)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParseDate_ExplicitOffsets(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantUTC time.Time
	}{
		{"utc", "05/03/2026 14:45 UTC", time.Date(2026, 3, 5, 14, 45, 0, 0, time.UTC)},
		{"utc minus three", "05/03/2026 14:45 (UTC-3)", time.Date(2026, 3, 5, 17, 45, 0, 0, time.UTC)},
		{"gmt plus one", "05/03/2026 14:45 GMT+1", time.Date(2026, 3, 5, 13, 45, 0, 0, time.UTC)},
		{"numeric offset", "05/03/2026 14:45 -05:00", time.Date(2026, 3, 5, 19, 45, 0, 0, time.UTC)},
		{"iso attached offset", "2025-03-15T10:00:00+02:00", time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)},
		{"iso attached compact offset", "2025-03-15T10:00-0300", time.Date(2025, 3, 15, 13, 0, 0, 0, time.UTC)},
		{"iso zulu", "2025-03-15T10:00:00Z", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)},
		{"iso zulu fractional", "2025-03-15T10:00:00.000Z", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUTC, got.UTC())
		})
	}
}

func TestParseDate_DayFirstOnly(t *testing.T) {
	got, err := ParseDate("03/04/2026", nil)
	require.NoError(t, err)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 3, got.Day())

	_, err = ParseDate("10/15/2026", nil)
	assert.Error(t, err, "month-first dates are not accepted")
}

func TestParseDate_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"pronto",
		"31/02/2026 10:00",
		"00/01/2026",
		"15/10/2026 25:00",
		"15/10/2026 10:75",
		"15 de brumario de 2026",
		"15/10/2026 22",
		"15/10/2026 10-30",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDate(input, nil)
			assert.Error(t, err)
		})
	}
}
