package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Av. Gral. San Martín", "avenida general san martin"},
		{"Cam. Central", "camara central"},
		{"ÁRBOLES", "arboles"},
		{"  Telecom   Argentina ", "telecom argentina"},
		{"cam.central", "camara central"},
		{"Avda Corrientes", "avenida corrientes"},
		{"Avellaneda", "avellaneda"},
		{"Cambio de equipo", "cambio de equipo"},
		{"Pte. Perón y Tte. Gral. Ricchieri", "presidente peron y teniente general ricchieri"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Av. Gral. San Martín",
		"Cam. Central",
		"İSTANBUL Av.",
		"Servicio 101; Servicio X9",
		"av..gral",
		"ñandú Dr.Ing.",
		"\tTELEFÓNICA  de  Argentina\n",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "tipo de tarea", NormalizeLabel("  • Tipo de Tarea "))
	assert.Equal(t, "descripcion", NormalizeLabel("*DESCRIPCIÓN*"))
	assert.Equal(t, "tiempo de afectacion", NormalizeLabel("Tiempo_de-afectación"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "martin gomez", ApplyChain(" MARTÍN \t GÓMEZ ", "lowercase", "strip_accents", "collapse_whitespace"))
	assert.Equal(t, "tipo de tarea", Apply("• Tipo de Tarea", "label"))
	assert.Equal(t, "value", Apply("value", "does-not-exist"))
}
