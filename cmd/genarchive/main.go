// Command genarchive generates synthetic INMET-style yearly ZIP archives for
// local pipeline testing without hitting the portal. Members mimic the real
// publication format: latin-1 encoded, semicolon-delimited, accented column
// headers, per-station member naming. It runs the generated bytes
// through the actual extraction and decode path to ensure the fixtures behave
// like real downloads.
//
// Usage:
//
//	go run ./cmd/genarchive \
//	  -out-dir testdata/archives \
//	  -station "SAO LUIZ DO PARAITINGA" \
//	  -years 2020-2022
package main

import (
	"archive/zip"
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/vfurtado/inmet-station-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "testdata/archives", "directory to write the generated ZIPs into")
	stationName := flag.String("station", "SAO LUIZ DO PARAITINGA", "station name embedded in member filenames")
	yearSpec := flag.String("years", "2020-2021", `years to generate: "all", "start-end", or a comma/space list`)
	seed := flag.Int64("seed", 1, "random seed for reproducible measurements")
	flag.Parse()

	years, err := domain.ParseYears(*yearSpec)
	if err != nil {
		return fmt.Errorf("parsing -years: %w", err)
	}

	station := domain.NewStation(*stationName)
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	for _, year := range years {
		data, err := buildYearArchive(station, year, rng)
		if err != nil {
			return fmt.Errorf("building %d archive: %w", year, err)
		}
		path := filepath.Join(*outDir, fmt.Sprintf("%d.zip", year))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return err
		}

		rows, strat, err := verify(station, data)
		if err != nil {
			return fmt.Errorf("generated %d archive does not round-trip: %w", year, err)
		}
		log.Printf("wrote %s: %d station rows (%s)", path, rows, strat)
	}
	return nil
}

// buildYearArchive produces one ZIP holding a member for the target station
// and one for an unrelated station, so filtering is exercised too.
func buildYearArchive(station domain.Station, year int, rng *rand.Rand) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	members := []struct {
		station string
		code    string
	}{
		{station.Name, "A740"},
		{"SAO PAULO - MIRANTE", "A701"},
	}
	for _, m := range members {
		name := fmt.Sprintf("INMET_SE_SP_%s_%s_01-01-%d_A_31-12-%d.CSV", m.code, m.station, year, year)
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		body, err := memberCSV(m.station, year, rng)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// memberCSV renders one station-year file the way the decode path expects
// them: a header with accented unit suffixes, decimal commas, latin-1 bytes.
func memberCSV(_ string, year int, rng *rand.Rand) ([]byte, error) {
	var b strings.Builder
	b.WriteString("DATA (YYYY-MM-DD);HORA (UTC);PRECIPITAÇÃO TOTAL, HORÁRIO (mm);TEMPERATURA MÉDIA (°C);TEMPERATURA MÁXIMA NA HORA ANT. (AUT) (°C);TEMPERATURA MÍNIMA NA HORA ANT. (AUT) (°C);UMIDADE RELATIVA DO AR, HORARIA (%);VENTO, VELOCIDADE HORARIA (m/s);PRESSAO ATMOSFERICA AO NIVEL DA ESTACAO (mB)\n")

	day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for day.Year() == year {
		mean := 18 + rng.Float64()*10
		fmt.Fprintf(&b, "%s;0000 UTC;%s;%s;%s;%s;%d;%s;%s\n",
			day.Format("2006-01-02"),
			comma(rng.Float64()*12),
			comma(mean),
			comma(mean+2+rng.Float64()*4),
			comma(mean-2-rng.Float64()*4),
			55+rng.Intn(40),
			comma(rng.Float64()*6),
			comma(905+rng.Float64()*20),
		)
		day = day.AddDate(0, 0, 1)
	}

	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(b.String()))
}

// comma formats a float with the decimal comma INMET uses.
func comma(v float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%.1f", v), ".", ",")
}

// verify runs the generated archive through the real member/decode/normalize
// path and reports how many station rows survive.
func verify(station domain.Station, data []byte) (int, domain.DecodeStrategy, error) {
	members, err := domain.CSVMembers(data)
	if err != nil {
		return 0, domain.DecodeStrategy{}, err
	}
	var tables [][]domain.Record
	var strat domain.DecodeStrategy
	for member, memberErr := range members {
		if memberErr != nil {
			return 0, strat, memberErr
		}
		if !station.Matches(member.Name) {
			continue
		}
		table, s, err := domain.Decode(member.Data)
		if err != nil {
			return 0, strat, err
		}
		strat = s
		tables = append(tables, domain.Normalize(table))
	}
	// Combine drops rows without a parseable timestamp, so a count mismatch
	// here means the generated header or date format regressed.
	combined := domain.Combine(tables)
	if len(combined) == 0 {
		return 0, strat, fmt.Errorf("no station rows survived the combine")
	}
	return len(combined), strat, nil
}
