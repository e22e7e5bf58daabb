package domain

import (
	"strconv"
	"strings"
	"time"
)

// NormalizeColumn canonicalizes a source header name: diacritics folded away,
// uppercased, non-alphanumeric runs collapsed to single underscores, trimmed.
// "Temperatura Média (°C)" → "TEMPERATURA_MEDIA_C".
func NormalizeColumn(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range foldASCII(name) {
		switch {
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r - ('a' - 'A'))
		default:
			pending = true
		}
	}
	return b.String()
}

// dateAliases are the canonical names a date column has appeared under across
// portal releases, in lookup order. Matching accepts a trailing qualifier
// ("DATA_YYYY_MM_DD" from "DATA (YYYY-MM-DD)") since releases also drift in
// the format hints they append.
var dateAliases = []string{"DATA", "DATA_MEDICAO", "DT_MEDICAO", "DT_MED"}

func matchesDateAlias(name, alias string) bool {
	return name == alias || strings.HasPrefix(name, alias+"_")
}

// hourPrefix marks the separate time-of-day column newer releases carry.
const hourPrefix = "HORA"

// projectionRule maps one output measurement to the source columns that may
// carry it. A column qualifies when its canonical name contains base and, if
// qualifiers is non-empty, at least one qualifier. Among qualifying columns
// the first containing tiebreak wins, then first in table order.
type projectionRule struct {
	column     string
	base       string
	qualifiers []string
	tiebreak   string
}

// projectionRules is evaluated in order against the canonical header. The
// fuzziness is deliberate: headers drift release over release ("TEMPERATURA
// MEDIA", "TEMPERATURA DO AR - BULBO SECO, HORARIA (°C)", ...), but the base
// substrings have stayed stable.
var projectionRules = []projectionRule{
	{column: ColTemperaturaMedia, base: "TEMPERATURA", qualifiers: []string{"MEDIA", "AR", "BULBO"}, tiebreak: "MEDIA"},
	{column: ColTemperaturaMaxima, base: "TEMPERATURA_MAX", tiebreak: "MEDIA"},
	{column: ColTemperaturaMinima, base: "TEMPERATURA_MIN", tiebreak: "MEDIA"},
	{column: ColUmidadeRelativa, base: "UMIDADE", qualifiers: []string{"REL", "RELATIVA"}},
	{column: ColPrecipitacao, base: "PRECIP"},
	{column: ColVelocidadeVento, base: "VENTO", qualifiers: []string{"VELOC", "VEL"}},
	{column: ColPressaoAtmosferica, base: "PRESSAO"},
}

func (r projectionRule) matches(name string) bool {
	if !strings.Contains(name, r.base) {
		return false
	}
	if len(r.qualifiers) == 0 {
		return true
	}
	for _, q := range r.qualifiers {
		if strings.Contains(name, q) {
			return true
		}
	}
	return false
}

// selectColumn picks the source column index for a rule, or -1.
func (r projectionRule) selectColumn(header []string) int {
	first := -1
	for i, name := range header {
		if !r.matches(name) {
			continue
		}
		if r.tiebreak != "" && strings.Contains(name, r.tiebreak) {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// Normalize reconciles a decoded table into the canonical record schema.
// Rows whose timestamp cannot be derived keep a null Data; the combiner
// drops them later.
func Normalize(t *RawTable) []Record {
	if t.Empty() {
		return nil
	}

	header := make([]string, len(t.Header))
	for i, name := range t.Header {
		header[i] = NormalizeColumn(name)
	}

	dateIdx := -1
	for _, alias := range dateAliases {
		for i, name := range header {
			if matchesDateAlias(name, alias) {
				dateIdx = i
				break
			}
		}
		if dateIdx >= 0 {
			break
		}
	}
	hourIdx := -1
	for i, name := range header {
		if strings.HasPrefix(name, hourPrefix) {
			hourIdx = i
			break
		}
	}

	sources := make(map[string]int, len(projectionRules))
	for _, rule := range projectionRules {
		sources[rule.column] = rule.selectColumn(header)
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := Record{
			Data:               deriveTimestamp(row, dateIdx, hourIdx),
			TemperaturaMedia:   projectValue(row, sources[ColTemperaturaMedia]),
			TemperaturaMaxima:  projectValue(row, sources[ColTemperaturaMaxima]),
			TemperaturaMinima:  projectValue(row, sources[ColTemperaturaMinima]),
			UmidadeRelativa:    projectValue(row, sources[ColUmidadeRelativa]),
			Precipitacao:       projectValue(row, sources[ColPrecipitacao]),
			VelocidadeVento:    projectValue(row, sources[ColVelocidadeVento]),
			PressaoAtmosferica: projectValue(row, sources[ColPressaoAtmosferica]),
		}
		records = append(records, rec)
	}

	applyMeanFallback(records)
	return records
}

// deriveTimestamp builds the row timestamp from the date column and, when
// present, the hour column. Day-first formats take priority because the
// portal's older archives use them. A row whose hour token cannot be parsed
// is null, not silently collapsed to midnight.
func deriveTimestamp(row []string, dateIdx, hourIdx int) Timestamp {
	if dateIdx < 0 || dateIdx >= len(row) {
		return Timestamp{}
	}
	dateStr := strings.TrimSpace(row[dateIdx])
	if dateStr == "" {
		return Timestamp{}
	}
	if hourIdx >= 0 && hourIdx < len(row) {
		if hourStr := strings.TrimSpace(row[hourIdx]); hourStr != "" {
			if ts, ok := parseDateTime(dateStr, hourStr); ok {
				return ts
			}
			return Timestamp{}
		}
	}
	if ts, ok := parseDate(dateStr); ok {
		return ts
	}
	return Timestamp{}
}

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
}

var hourLayouts = []string{
	"15:04",
	"15:04:05",
	"1504 UTC",
	"15:04 UTC",
	"1504",
}

func parseDate(s string) (Timestamp, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{}, false
}

func parseDateTime(dateStr, hourStr string) (Timestamp, bool) {
	combined := dateStr + " " + hourStr
	for _, dl := range dateLayouts {
		for _, hl := range hourLayouts {
			if t, err := time.Parse(dl+" "+hl, combined); err == nil {
				return Timestamp{Time: t}, true
			}
		}
	}
	return Timestamp{}, false
}

// projectValue parses one measurement cell. idx < 0 means the rule matched no
// column; the measurement is null for the whole table.
func projectValue(row []string, idx int) Measurement {
	if idx < 0 || idx >= len(row) {
		return Measurement{}
	}
	return parseMeasurement(row[idx])
}

// parseMeasurement coerces a token to a measurement, accepting the decimal
// comma INMET writes in most years. Anything unparseable is null, never an
// error.
func parseMeasurement(s string) Measurement {
	s = strings.TrimSpace(s)
	if s == "" {
		return Measurement{}
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Measurement{}
	}
	return NewMeasurement(v)
}

// applyMeanFallback derives TEMPERATURA_MEDIA as (max+min)/2 row-wise, but
// only when the projected mean column is entirely null and max and min each
// carry at least one real value. A single genuine mean reading anywhere in
// the table disables the fallback for every row.
func applyMeanFallback(records []Record) {
	anyMean, anyMax, anyMin := false, false, false
	for i := range records {
		anyMean = anyMean || !records[i].TemperaturaMedia.IsNull()
		anyMax = anyMax || !records[i].TemperaturaMaxima.IsNull()
		anyMin = anyMin || !records[i].TemperaturaMinima.IsNull()
	}
	if anyMean || !anyMax || !anyMin {
		return
	}
	for i := range records {
		maxV, minV := records[i].TemperaturaMaxima, records[i].TemperaturaMinima
		if maxV.IsNull() || minV.IsNull() {
			continue
		}
		records[i].TemperaturaMedia = NewMeasurement((maxV.Value() + minV.Value()) / 2)
	}
}
