package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canonical column names of the combined dataset, in output order.
const (
	ColData               = "DATA"
	ColTemperaturaMedia   = "TEMPERATURA_MEDIA"
	ColTemperaturaMaxima  = "TEMPERATURA_MAXIMA"
	ColTemperaturaMinima  = "TEMPERATURA_MINIMA"
	ColUmidadeRelativa    = "UMIDADE_RELATIVA"
	ColPrecipitacao       = "PRECIPITACAO"
	ColVelocidadeVento    = "VELOCIDADE_VENTO"
	ColPressaoAtmosferica = "PRESSAO_ATMOSFERICA"
)

// Timestamp wraps time.Time with the CSV formats the combined file uses:
// "2006-01-02" for date-only values, "2006-01-02 15:04:05" otherwise.
// The zero value is a null timestamp; rows carrying one never reach the
// output file (the combiner drops them).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// IsNull reports whether the timestamp is absent or unparseable.
func (ts Timestamp) IsNull() bool { return ts.IsZero() }

// MarshalCSV renders the timestamp for the combined file.
func (ts Timestamp) MarshalCSV() (string, error) {
	if ts.IsNull() {
		return "", nil
	}
	h, m, s := ts.Clock()
	if h == 0 && m == 0 && s == 0 {
		return ts.Format("2006-01-02"), nil
	}
	return ts.Format("2006-01-02 15:04:05"), nil
}

// UnmarshalCSV parses the formats MarshalCSV emits, plus RFC 3339.
func (ts *Timestamp) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Measurement is one nullable numeric cell. The zero value is null, and null
// survives round-trips as an empty CSV cell or a JSON null instead of
// collapsing to zero.
type Measurement struct {
	value float64
	valid bool
}

// NewMeasurement wraps a concrete reading.
func NewMeasurement(v float64) Measurement {
	return Measurement{value: v, valid: true}
}

// IsNull reports whether the measurement is absent.
func (m Measurement) IsNull() bool { return !m.valid }

// Value returns the reading, 0 when null. Check IsNull first.
func (m Measurement) Value() float64 { return m.value }

// MarshalCSV renders the measurement, empty when null.
func (m Measurement) MarshalCSV() (string, error) {
	if !m.valid {
		return "", nil
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64), nil
}

// UnmarshalCSV parses a cell of the combined file; empty means null.
func (m *Measurement) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*m = Measurement{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid measurement %q", s)
	}
	*m = NewMeasurement(v)
	return nil
}

// MarshalJSON renders null measurements as JSON null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

func (m *Measurement) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Measurement{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = NewMeasurement(v)
	return nil
}

// Record is one normalized row of the combined dataset.
type Record struct {
	Data               Timestamp   `csv:"DATA" json:"data"`
	TemperaturaMedia   Measurement `csv:"TEMPERATURA_MEDIA" json:"temperatura_media"`
	TemperaturaMaxima  Measurement `csv:"TEMPERATURA_MAXIMA" json:"temperatura_maxima"`
	TemperaturaMinima  Measurement `csv:"TEMPERATURA_MINIMA" json:"temperatura_minima"`
	UmidadeRelativa    Measurement `csv:"UMIDADE_RELATIVA" json:"umidade_relativa"`
	Precipitacao       Measurement `csv:"PRECIPITACAO" json:"precipitacao"`
	VelocidadeVento    Measurement `csv:"VELOCIDADE_VENTO" json:"velocidade_vento"`
	PressaoAtmosferica Measurement `csv:"PRESSAO_ATMOSFERICA" json:"pressao_atmosferica"`
}
