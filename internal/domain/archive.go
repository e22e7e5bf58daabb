package domain

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"
)

// ArchiveMember is one CSV file pulled out of a year archive. It only lives
// for the duration of extraction; the decoder consumes it.
type ArchiveMember struct {
	Name string
	Data []byte
}

// CSVMembers opens a ZIP held in memory and returns a single-pass sequence of
// its CSV members (case-insensitive extension match) in archive order. Errors
// reading an individual member are yielded alongside it so the caller can skip
// that member without losing the rest.
func CSVMembers(data []byte) (iter.Seq2[ArchiveMember, error], error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	return func(yield func(ArchiveMember, error) bool) {
		for _, f := range zr.File {
			if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
				continue
			}
			member, err := readMember(f)
			if !yield(member, err) {
				return
			}
		}
	}, nil
}

func readMember(f *zip.File) (ArchiveMember, error) {
	rc, err := f.Open()
	if err != nil {
		return ArchiveMember{Name: f.Name}, fmt.Errorf("open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ArchiveMember{Name: f.Name}, fmt.Errorf("read member %s: %w", f.Name, err)
	}
	return ArchiveMember{Name: f.Name, Data: data}, nil
}
