package reps

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/regsalud/reps-sync/internal/model"
)

// maxRepairPasses caps the repair loop; deeper nesting than double
// mis-decoding has not been seen in real exports.
const maxRepairPasses = 3

type replacement struct {
	garbled string
	fixed   string
}

// mojibakeTable is derived once at init: for each character the portal is
// known to emit, compute the garbled sequence produced by re-decoding its
// UTF-8 bytes as Windows-1252. Longer sequences are ordered first so a
// three-byte artifact is never half-repaired by a shorter pattern.
var mojibakeTable = buildMojibakeTable()

func buildMojibakeTable() []replacement {
	chars := []string{
		"á", "é", "í", "ó", "ú",
		"Á", "É", "Í", "Ó", "Ú",
		"ñ", "Ñ", "ü", "Ü",
		"°", "ª", "º", "¿", "¡",
		"–", "—", "‘", "’", "“", "”",
	}

	table := make([]replacement, 0, len(chars))
	for _, c := range chars {
		var sb strings.Builder
		ok := true
		for _, b := range []byte(c) {
			r := charmap.Windows1252.DecodeByte(b)
			if r == utf8.RuneError {
				ok = false
				break
			}
			sb.WriteRune(r)
		}
		if !ok {
			continue
		}
		garbled := sb.String()
		if garbled == c {
			continue
		}
		table = append(table, replacement{garbled: garbled, fixed: c})
	}

	sort.SliceStable(table, func(i, j int) bool {
		return len(table[i].garbled) > len(table[j].garbled)
	})
	return table
}

// nan-like sentinels the portal emits for absent values
var emptySentinels = map[string]struct{}{
	"nan":  {},
	"none": {},
	"null": {},
	"n/a":  {},
	"#n/a": {},
	"-":    {},
}

// Clean trims a raw cell and maps NaN-like sentinels to the empty string.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := emptySentinels[strings.ToLower(s)]; ok {
		return ""
	}
	return s
}

// RepairEncoding undoes UTF-8-as-Windows-1252 mis-decoding artifacts. The
// pass is repeated until the text is stable or the cap is hit, and is the
// identity on text without known artifacts.
func RepairEncoding(s string) string {
	for pass := 0; pass < maxRepairPasses; pass++ {
		before := s
		for _, r := range mojibakeTable {
			s = strings.ReplaceAll(s, r.garbled, r.fixed)
		}
		if s == before {
			break
		}
	}
	return s
}

// NormalizeText is the standard cell transform: clean then repair.
func NormalizeText(s string) string {
	return RepairEncoding(Clean(s))
}

var boolSynonyms = map[string]model.TriState{
	"si":         model.TriStateYes,
	"sí":         model.TriStateYes,
	"s":          model.TriStateYes,
	"yes":        model.TriStateYes,
	"y":          model.TriStateYes,
	"x":          model.TriStateYes,
	"1":          model.TriStateYes,
	"true":       model.TriStateYes,
	"activo":     model.TriStateYes,
	"habilitado": model.TriStateYes,
	"no":         model.TriStateNo,
	"n":          model.TriStateNo,
	"0":          model.TriStateNo,
	"false":      model.TriStateNo,
	"inactivo":   model.TriStateNo,
}

// CanonBool maps a free-text yes/no field to its canonical tri-state.
// Unrecognized input becomes unknown rather than an error.
func CanonBool(s string) model.TriState {
	v := strings.ToLower(NormalizeText(s))
	if v == "" {
		return model.TriStateUnknown
	}
	if t, ok := boolSynonyms[v]; ok {
		return t
	}
	return model.TriStateUnknown
}

var complexitySynonyms = map[string]model.Complexity{
	"baja":    model.ComplexityLow,
	"bajo":    model.ComplexityLow,
	"low":     model.ComplexityLow,
	"b":       model.ComplexityLow,
	"1":       model.ComplexityLow,
	"media":   model.ComplexityMedium,
	"mediana": model.ComplexityMedium,
	"medio":   model.ComplexityMedium,
	"medium":  model.ComplexityMedium,
	"m":       model.ComplexityMedium,
	"2":       model.ComplexityMedium,
	"alta":    model.ComplexityHigh,
	"alto":    model.ComplexityHigh,
	"high":    model.ComplexityHigh,
	"a":       model.ComplexityHigh,
	"3":       model.ComplexityHigh,
}

// CanonComplexity maps a free-text complexity descriptor to its canonical
// code. Unrecognized descriptors fall back to def; the portal's convention
// makes that "low", but the policy is configurable at the pipeline level.
func CanonComplexity(s string, def model.Complexity) model.Complexity {
	v := strings.ToLower(NormalizeText(s))
	if c, ok := complexitySynonyms[v]; ok {
		return c
	}
	return def
}

// dateFormats in priority order: ISO first, then day-first variants the
// portal mixes in freely.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02/01/2006 15:04:05",
}

// ParseDate tries the known formats in order. Absence is valid for
// optional fields, so no match returns nil rather than an error.
func ParseDate(s string) *time.Time {
	v := Clean(s)
	if v == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// ParseInt coerces a cell to an integer, returning def on any failure.
func ParseInt(s string, def int) int {
	v := Clean(s)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// capacity figures occasionally arrive as "12.0"
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil {
			return int(f)
		}
		return def
	}
	return n
}
