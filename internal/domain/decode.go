package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUndecodable signals that no decode strategy produced a table. It is a
// data-quality signal for the caller, distinct from a table that parsed fine
// but happens to be empty.
var ErrUndecodable = errors.New("no decode strategy produced a table")

// DecodeStrategy is one (encoding, delimiter) attempt. Delimiter 0 means
// auto-detect from the header line.
type DecodeStrategy struct {
	Encoding  string
	Delimiter rune
}

func (s DecodeStrategy) String() string {
	if s.Delimiter == 0 {
		return s.Encoding + "/auto"
	}
	return fmt.Sprintf("%s/%q", s.Encoding, s.Delimiter)
}

// decodeStrategies is the fixed priority order: latin-1 first because INMET's
// older archives use it (and it accepts any byte sequence), semicolon first
// because that is the portal's dominant delimiter.
var decodeStrategies = func() []DecodeStrategy {
	var out []DecodeStrategy
	for _, enc := range []string{"latin-1", "utf-8-sig", "utf-8"} {
		for _, delim := range []rune{';', ',', 0} {
			out = append(out, DecodeStrategy{Encoding: enc, Delimiter: delim})
		}
	}
	return out
}()

// Decode turns raw CSV bytes of uncertain encoding and delimiter into a
// RawTable, trying each strategy in order and returning the first success
// along with the strategy that produced it. Rows that do not tokenize to the
// header's field count are skipped, not fatal. All strategies failing yields
// ErrUndecodable.
func Decode(raw []byte) (*RawTable, DecodeStrategy, error) {
	for _, strat := range decodeStrategies {
		table, err := tryDecode(raw, strat)
		if err != nil {
			continue
		}
		return table, strat, nil
	}
	return nil, DecodeStrategy{}, ErrUndecodable
}

func tryDecode(raw []byte, strat DecodeStrategy) (*RawTable, error) {
	text, err := decodeCharset(raw, strat.Encoding)
	if err != nil {
		return nil, err
	}

	delim := strat.Delimiter
	if delim == 0 {
		delim, err = sniffDelimiter(text)
		if err != nil {
			return nil, err
		}
	}
	return parseCSV(text, delim)
}

func decodeCharset(raw []byte, encoding string) (string, error) {
	switch encoding {
	case "latin-1":
		// Every byte sequence is valid latin-1; this never fails.
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	case "utf-8-sig":
		trimmed := bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
		if !utf8.Valid(trimmed) {
			return "", errors.New("invalid utf-8")
		}
		return string(trimmed), nil
	case "utf-8":
		if !utf8.Valid(raw) {
			return "", errors.New("invalid utf-8")
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unknown encoding %q", encoding)
	}
}

// sniffDelimiter scores candidate delimiters on the first non-empty line.
func sniffDelimiter(text string) (rune, error) {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := rune(0), 0
	for _, cand := range []rune{';', ',', '\t', '|'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	if best == 0 {
		return 0, errors.New("no delimiter detected")
	}
	return best, nil
}

// parseCSV reads text into a RawTable. The first non-empty record becomes the
// header; it must have at least two fields, otherwise the delimiter guess is
// considered wrong. Rows with a different field count than the header are
// dropped (lenient mode).
func parseCSV(text string, delim rune) (*RawTable, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d field(s), delimiter %q rejected", len(header), delim)
	}

	table := &RawTable{Header: header}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed row; skip and keep reading.
			continue
		}
		if len(row) != len(header) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
