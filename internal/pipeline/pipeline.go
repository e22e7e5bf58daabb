// Package pipeline orchestrates the fetch run: index discovery, per-year
// archive retrieval, member extraction, decoding, normalization, and the
// final combine. Years run sequentially; every per-item failure is caught at
// that item's boundary, logged, counted, and recorded in the report, so only
// a run that yields no data at all terminates early.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/vfurtado/inmet-station-etl/internal/adapter/portal"
	"github.com/vfurtado/inmet-station-etl/internal/domain"
	"github.com/vfurtado/inmet-station-etl/internal/observability"
)

// PortalClient downloads portal pages and archives.
type PortalClient interface {
	Get(ctx context.Context, url string) (portal.Response, error)
}

// RecordSink receives the combined dataset after a successful run.
type RecordSink interface {
	PublishRecords(ctx context.Context, records []domain.Record) error
}

// Config carries the run parameters resolved by the caller.
type Config struct {
	BaseURL      string
	Origin       string // scheme://host for resolving relative hrefs
	RawDir       string // per-year archive cache, kept for audit/replay
	CombinedPath string
	Station      domain.Station
	Progress     bool // render terminal progress bars
}

// Fetcher runs the scrape-and-normalize pipeline for one station.
type Fetcher struct {
	client    PortalClient
	cfg       Config
	sink      RecordSink // nil disables publishing
	logger    *slog.Logger
	metrics   *observability.Metrics
	yearsDone atomic.Int64
}

// New creates a Fetcher. Pass a nil sink to disable record publishing.
func New(client PortalClient, cfg Config, sink RecordSink, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
	}
}

// YearsProcessed reports run progress for the readiness endpoint.
func (f *Fetcher) YearsProcessed() int {
	return int(f.yearsDone.Load())
}

// Run fetches the given years and writes the combined dataset. It returns
// the run report together with domain.ErrNoData when no station rows were
// produced; the report is valid in that case too.
func (f *Fetcher) Run(ctx context.Context, years []int) (*Report, error) {
	report := &Report{StartedAt: domain.Now(), OutputPath: f.cfg.CombinedPath}
	defer func() { report.FinishedAt = domain.Now() }()

	f.metrics.FetchRunning.Set(1)
	defer f.metrics.FetchRunning.Set(0)

	yearLinks, err := f.fetchIndex(ctx)
	if err != nil {
		f.metrics.ItemFailures.WithLabelValues("index").Inc()
		return nil, err
	}
	f.logger.Info("index scanned", "year_links", len(yearLinks))

	var tables [][]domain.Record
	for _, year := range years {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tables = append(tables, f.processYear(ctx, year, yearLinks, report)...)
		f.yearsDone.Add(1)
	}

	combined := domain.Combine(tables)
	report.CombinedRows = len(combined)
	f.metrics.CombinedRows.Set(float64(len(combined)))

	if len(combined) == 0 {
		f.logger.Warn("no station data found", "station", f.cfg.Station.Name, "years", len(years))
		return report, domain.ErrNoData
	}

	if err := domain.WriteCombined(combined, f.cfg.CombinedPath); err != nil {
		return report, fmt.Errorf("write combined dataset: %w", err)
	}
	f.logger.Info("combined dataset written", "path", f.cfg.CombinedPath, "rows", len(combined))

	if f.sink != nil {
		if err := f.sink.PublishRecords(ctx, combined); err != nil {
			// Publishing is downstream convenience; the file on disk is the
			// durable artifact, so a sink failure does not fail the run.
			f.logger.Error("publish combined records failed", "error", err)
			f.metrics.ItemFailures.WithLabelValues("sink").Inc()
			report.addSkip(0, "sink", "combined records", err.Error())
		}
	}

	return report, nil
}

// fetchIndex downloads the portal index and extracts the year→URL map.
// Without the index nothing can proceed, so failures here end the run.
func (f *Fetcher) fetchIndex(ctx context.Context) (map[int]string, error) {
	resp, err := f.get(ctx, f.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	links, err := portal.FindYearLinks(string(resp.Body), f.cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}
	return links, nil
}

// processYear retrieves one year's archives and returns the normalized
// station tables they contained. All failures are absorbed into the report.
func (f *Fetcher) processYear(ctx context.Context, year int, yearLinks map[int]string, report *Report) [][]domain.Record {
	logger := f.logger.With("year", year)
	summary := YearSummary{Year: year}
	defer func() { report.Years = append(report.Years, summary) }()

	yearURL, ok := yearLinks[year]
	if !ok {
		logger.Warn("no index link for year")
		report.addSkip(year, "index", f.cfg.BaseURL, "no archive link on the index page")
		return nil
	}

	resp, err := f.get(ctx, yearURL)
	if err != nil {
		logger.Warn("year retrieval failed", "url", yearURL, "error", err)
		f.metrics.ItemFailures.WithLabelValues("year").Inc()
		report.addSkip(year, "year", yearURL, err.Error())
		return nil
	}

	// A non-HTML response is the archive itself; HTML is a listing page to
	// scan for ZIP links.
	type candidate struct {
		url  string
		data []byte // already downloaded, nil when still to fetch
	}
	var candidates []candidate
	if !resp.IsHTML() {
		logger.Debug("direct archive link detected", "url", yearURL)
		candidates = []candidate{{url: yearURL, data: resp.Body}}
	} else {
		zipURLs, err := portal.FindZipLinks(string(resp.Body), f.cfg.Origin)
		if err != nil {
			logger.Warn("listing parse failed", "url", yearURL, "error", err)
			f.metrics.ItemFailures.WithLabelValues("year").Inc()
			report.addSkip(year, "year", yearURL, err.Error())
			return nil
		}
		for _, u := range zipURLs {
			candidates = append(candidates, candidate{url: u})
		}
	}

	var bar *progressbar.ProgressBar
	if f.cfg.Progress {
		bar = progressbar.Default(int64(len(candidates)), fmt.Sprintf("%d - zips", year))
		defer bar.Finish() //nolint:errcheck // cosmetic
	}

	var tables [][]domain.Record
	for _, cand := range candidates {
		if ctx.Err() != nil {
			return tables
		}
		data := cand.data
		if data == nil {
			archResp, err := f.get(ctx, cand.url)
			if err != nil {
				logger.Warn("archive download failed", "url", cand.url, "error", err)
				f.metrics.ItemFailures.WithLabelValues("archive").Inc()
				report.addSkip(year, "archive", cand.url, err.Error())
				continue
			}
			data = archResp.Body
		}
		f.metrics.ArchivesDownloaded.Inc()
		summary.Archives++

		f.cacheArchive(year, cand.url, data, logger)
		tables = append(tables, f.extractStationTables(year, cand.url, data, report, logger)...)

		if bar != nil {
			bar.Add(1) //nolint:errcheck // cosmetic
		}
	}

	summary.Tables = len(tables)
	report.TablesExtracted += len(tables)
	return tables
}

// cacheArchive preserves the raw download under <rawDir>/<year>/<year>_<basename>
// for audit and replay. Cache failures are not fatal: the bytes are already in
// memory and the cache is not consumed by later stages.
func (f *Fetcher) cacheArchive(year int, archiveURL string, data []byte, logger *slog.Logger) {
	dir := filepath.Join(f.cfg.RawDir, strconv.Itoa(year))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("create raw cache dir failed", "dir", dir, "error", err)
		return
	}
	name := strconv.Itoa(year) + "_" + archiveBasename(archiveURL)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		logger.Warn("write raw archive failed", "file", name, "error", err)
	}
}

func archiveBasename(archiveURL string) string {
	if u, err := url.Parse(archiveURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(archiveURL)
}

// extractStationTables walks one archive's CSV members, keeps the ones that
// belong to the target station, and decodes and normalizes each.
func (f *Fetcher) extractStationTables(year int, archiveURL string, data []byte, report *Report, logger *slog.Logger) [][]domain.Record {
	members, err := domain.CSVMembers(data)
	if err != nil {
		logger.Warn("unreadable archive", "url", archiveURL, "error", err)
		f.metrics.ItemFailures.WithLabelValues("archive").Inc()
		report.addSkip(year, "archive", archiveURL, err.Error())
		return nil
	}

	var tables [][]domain.Record
	for member, memberErr := range members {
		if memberErr != nil {
			logger.Warn("member extraction failed", "member", member.Name, "error", memberErr)
			f.metrics.ItemFailures.WithLabelValues("member").Inc()
			report.addSkip(year, "member", member.Name, memberErr.Error())
			continue
		}
		if !f.cfg.Station.Matches(member.Name) {
			continue
		}
		f.metrics.MembersExtracted.Inc()

		table, strat, err := domain.Decode(member.Data)
		if err != nil {
			logger.Warn("undecodable member", "member", member.Name, "error", err)
			f.metrics.DecodeFailures.Inc()
			report.addSkip(year, "member", member.Name, err.Error())
			continue
		}
		if table.Empty() {
			logger.Debug("member parsed empty", "member", member.Name, "strategy", strat.String())
			continue
		}

		records := domain.Normalize(table)
		f.metrics.TablesNormalized.Inc()
		logger.Debug("member normalized",
			"member", member.Name,
			"strategy", strat.String(),
			"rows", len(records),
		)
		tables = append(tables, records)
	}
	return tables
}

func (f *Fetcher) get(ctx context.Context, u string) (portal.Response, error) {
	start := time.Now()
	resp, err := f.client.Get(ctx, u)
	if err != nil {
		return portal.Response{}, err
	}
	f.metrics.DownloadBytes.Add(float64(len(resp.Body)))
	f.metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	return resp, nil
}
