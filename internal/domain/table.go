package domain

// RawTable is one CSV member decoded into rows, before any normalization.
// Header names are whatever the source year used; rows are kept as strings
// because value parsing is the normalizer's job.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Empty reports whether the table carries no data rows.
func (t *RawTable) Empty() bool {
	return t == nil || len(t.Header) == 0 || len(t.Rows) == 0
}
