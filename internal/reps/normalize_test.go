package reps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regsalud/reps-sync/internal/model"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "Sede Norte", Clean("  Sede Norte  "))
	assert.Equal(t, "", Clean("nan"))
	assert.Equal(t, "", Clean("NaN"))
	assert.Equal(t, "", Clean("None"))
	assert.Equal(t, "", Clean("NULL"))
	assert.Equal(t, "", Clean("N/A"))
	assert.Equal(t, "", Clean("#N/A"))
	assert.Equal(t, "", Clean(" - "))
	assert.Equal(t, "", Clean(""))
	// a real hyphenated value is not a sentinel
	assert.Equal(t, "Calle 10 - 23", Clean("Calle 10 - 23"))
}

func TestRepairEncoding(t *testing.T) {
	cases := map[string]string{
		"BogotÃ¡":          "Bogotá",
		"NariÃ±o":          "Nariño",
		"MÃ©dico":          "Médico",
		"AtenciÃ³n":        "Atención",
		"Piso 2Â°":         "Piso 2°",
	}
	for garbled, want := range cases {
		assert.Equal(t, want, RepairEncoding(garbled))
	}
}

func TestRepairEncodingIdentityOnCleanText(t *testing.T) {
	for _, s := range []string{"", "Bogotá", "Nariño", "Clinica Central", "Calle 10 # 5-23"} {
		assert.Equal(t, s, RepairEncoding(s))
	}
}

func TestRepairEncodingIdempotent(t *testing.T) {
	for _, s := range []string{"BogotÃ¡", "Bogotá", "NariÃ±o", "plain ascii"} {
		once := RepairEncoding(s)
		assert.Equal(t, once, RepairEncoding(once))
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Bogotá", NormalizeText("  BogotÃ¡  "))
	assert.Equal(t, "", NormalizeText(" nan "))
}

func TestCanonBool(t *testing.T) {
	for _, s := range []string{"SI", "sí", "s", "YES", "x", "1", "true", "ACTIVO", "habilitado"} {
		assert.Equal(t, model.TriStateYes, CanonBool(s), s)
	}
	for _, s := range []string{"NO", "n", "0", "false", "Inactivo"} {
		assert.Equal(t, model.TriStateNo, CanonBool(s), s)
	}
	for _, s := range []string{"", "nan", "tal vez", "2"} {
		assert.Equal(t, model.TriStateUnknown, CanonBool(s), s)
	}
}

func TestCanonComplexity(t *testing.T) {
	assert.Equal(t, model.ComplexityLow, CanonComplexity("BAJA", model.ComplexityMedium))
	assert.Equal(t, model.ComplexityMedium, CanonComplexity("Mediana", model.ComplexityLow))
	assert.Equal(t, model.ComplexityHigh, CanonComplexity("alta", model.ComplexityLow))
	assert.Equal(t, model.ComplexityHigh, CanonComplexity("3", model.ComplexityLow))

	// unrecognized descriptors take the configured default
	assert.Equal(t, model.ComplexityLow, CanonComplexity("", model.ComplexityLow))
	assert.Equal(t, model.ComplexityMedium, CanonComplexity("desconocida", model.ComplexityMedium))
}

func TestParseDate(t *testing.T) {
	got := ParseDate("2019-05-17")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2019, 5, 17, 0, 0, 0, 0, time.UTC), *got)

	got = ParseDate("17/05/2019")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2019, 5, 17, 0, 0, 0, 0, time.UTC), *got)

	got = ParseDate("17-05-2019")
	require.NotNil(t, got)
	assert.Equal(t, 17, got.Day())

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("nan"))
	assert.Nil(t, ParseDate("pronto"))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 12, ParseInt("12", 0))
	assert.Equal(t, 12, ParseInt("12.0", 0))
	assert.Equal(t, 0, ParseInt("", 0))
	assert.Equal(t, 5, ParseInt("nan", 5))
	assert.Equal(t, 5, ParseInt("muchas", 5))
}
