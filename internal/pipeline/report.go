package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Skip records one item the run could not use, and why. Skips replace the
// original behavior of printing failures as they happen: the caller gets a
// structured list instead of console noise. Year 0 marks a run-level skip
// (the sink stage) that belongs to no single year.
type Skip struct {
	Year    int
	Stage   string // "index", "year", "archive", "member", "sink"
	Subject string // URL or member name
	Reason  string
}

// Scope labels the skip for the summary: its year, or "run" for run-level skips.
func (s Skip) Scope() string {
	if s.Year == 0 {
		return "run"
	}
	return strconv.Itoa(s.Year)
}

// YearSummary counts what one year contributed.
type YearSummary struct {
	Year     int
	Archives int
	Tables   int
}

// Report is the structured outcome of a fetch run.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Years []YearSummary
	Skips []Skip

	TablesExtracted int
	CombinedRows    int
	OutputPath      string
}

// Empty reports whether the run produced no combined rows at all.
func (r *Report) Empty() bool { return r.CombinedRows == 0 }

func (r *Report) addSkip(year int, stage, subject, reason string) {
	r.Skips = append(r.Skips, Skip{Year: year, Stage: stage, Subject: subject, Reason: reason})
}

// Summary renders a human-readable digest for the CLI.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "processed %d year(s) in %s\n", len(r.Years), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	archives := 0
	for _, y := range r.Years {
		archives += y.Archives
	}
	fmt.Fprintf(&b, "archives: %d, station tables: %d\n", archives, r.TablesExtracted)

	if r.Empty() {
		b.WriteString("no data found\n")
	} else {
		fmt.Fprintf(&b, "combined rows: %d\n", r.CombinedRows)
		fmt.Fprintf(&b, "output: %s\n", r.OutputPath)
	}

	if len(r.Skips) > 0 {
		fmt.Fprintf(&b, "skipped %d item(s):\n", len(r.Skips))
		for _, s := range r.Skips {
			fmt.Fprintf(&b, "  [%s/%s] %s: %s\n", s.Scope(), s.Stage, s.Subject, s.Reason)
		}
	}
	return b.String()
}
