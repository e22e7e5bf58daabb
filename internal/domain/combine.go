package domain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
)

// ErrNoData signals that a fetch run produced no station-matching rows at all.
// The run terminates without writing a file; callers decide how loudly to
// report it.
var ErrNoData = errors.New("no station data found")

// Combine merges per-year normalized tables into the final dataset: rows with
// a null timestamp are dropped, the rest are sorted chronologically (stable,
// so input order breaks ties) and deduplicated keeping the first row per
// distinct timestamp.
func Combine(tables [][]Record) []Record {
	var all []Record
	for _, t := range tables {
		for _, rec := range t {
			if rec.Data.IsNull() {
				continue
			}
			all = append(all, rec)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Data.Before(all[j].Data.Time)
	})

	out := all[:0]
	for _, rec := range all {
		if len(out) > 0 && out[len(out)-1].Data.Equal(rec.Data.Time) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// WriteCombined persists the combined dataset as a UTF-8 CSV with the
// canonical header, creating parent directories as needed. An empty dataset
// returns ErrNoData and writes nothing.
func WriteCombined(records []Record, path string) error {
	if len(records) == 0 {
		return ErrNoData
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("write combined dataset: %w", err)
	}
	return nil
}

// ReadCombined loads a previously written combined dataset, mainly for
// fixture generation and tests.
func ReadCombined(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("read combined dataset: %w", err)
	}
	return records, nil
}
