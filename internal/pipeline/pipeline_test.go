package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfurtado/inmet-station-etl/internal/adapter/portal"
	"github.com/vfurtado/inmet-station-etl/internal/domain"
	"github.com/vfurtado/inmet-station-etl/internal/observability"
	"github.com/vfurtado/inmet-station-etl/internal/pipeline"
)

type fakeSink struct {
	published []domain.Record
	err       error
}

func (s *fakeSink) PublishRecords(_ context.Context, records []domain.Record) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, records...)
	return nil
}

func newFetcher(t *testing.T, f *portalFixture, sink pipeline.RecordSink) (*pipeline.Fetcher, string) {
	t.Helper()
	tmp := t.TempDir()
	outPath := filepath.Join(tmp, "out", "combined.csv")
	cfg := pipeline.Config{
		BaseURL:      f.url() + "/index",
		Origin:       f.url(),
		RawDir:       filepath.Join(tmp, "raw"),
		CombinedPath: outPath,
		Station:      domain.NewStation("SAO LUIZ DO PARAITINGA"),
	}
	client := portal.NewClient(5*time.Second, "test-agent", slog.Default())
	return pipeline.New(client, cfg, sink, slog.Default(), observability.NewMetricsForTesting()), outPath
}

func TestFetcher_Run_EndToEnd(t *testing.T) {
	f := newPortalFixture(t)

	// 2020 is a direct archive link; 2021 goes through a listing page.
	f.index = `<html><body>
		<a href="/2020.zip">ANO 2020 (AUTOMÁTICA)</a>
		<a href="/2021">ANO 2021 (AUTOMÁTICA)</a>
	</body></html>`
	f.listings["/2021"] = `<html><body><a href="/2021.zip">download</a></body></html>`

	f.archives["/2020.zip"] = buildArchive(t, map[string][]byte{
		stationMember2020: []byte("DATA;TEMPERATURA MEDIA (°C)\n2020-01-01;20\n2020-01-02;21\n"),
		otherStationMember: []byte("DATA;TEMPERATURA MEDIA (°C)\n2020-01-01;99\n"),
	})
	// Duplicate 2020-01-02 with a different reading, plus a new day.
	f.archives["/2021.zip"] = buildArchive(t, map[string][]byte{
		stationMember2021: []byte("DATA;TEMPERATURA MEDIA (°C)\n2020-01-02;99\n2020-01-03;22\n"),
	})

	sink := &fakeSink{}
	fetcher, outPath := newFetcher(t, f, sink)

	report, err := fetcher.Run(context.Background(), []int{2020, 2021, 2022})
	require.NoError(t, err)

	// Three distinct days; the duplicate 2020-01-02 keeps the first table's
	// reading after the stable sort.
	assert.Equal(t, 3, report.CombinedRows)
	assert.Equal(t, 2, report.TablesExtracted)
	assert.Equal(t, 3, fetcher.YearsProcessed())

	records, err := domain.ReadCombined(outPath)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Data.Time)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), records[1].Data.Time)
	assert.Equal(t, time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), records[2].Data.Time)
	require.False(t, records[1].TemperaturaMedia.IsNull())
	assert.InDelta(t, 21.0, records[1].TemperaturaMedia.Value(), 1e-9)

	// 2022 has no index link: recorded as a skip, not an error.
	require.Len(t, report.Skips, 1)
	assert.Equal(t, 2022, report.Skips[0].Year)
	assert.Equal(t, "index", report.Skips[0].Stage)

	// The sink got exactly the combined rows.
	assert.Len(t, sink.published, 3)

	summary := report.Summary()
	assert.Contains(t, summary, "combined rows: 3")
	assert.Contains(t, summary, "skipped 1 item(s)")
}

func TestFetcher_Run_CachesRawArchives(t *testing.T) {
	f := newPortalFixture(t)
	f.index = `<html><body><a href="/2020.zip">ANO 2020 (AUTOMÁTICA)</a></body></html>`
	f.archives["/2020.zip"] = buildArchive(t, map[string][]byte{
		stationMember2020: []byte("DATA;PRECIPITACAO\n2020-01-01;1\n"),
	})

	fetcher, _ := newFetcher(t, f, nil)
	report, err := fetcher.Run(context.Background(), []int{2020})
	require.NoError(t, err)
	require.Equal(t, 1, report.CombinedRows)

	// Raw archive preserved as <rawDir>/<year>/<year>_<basename>.
	cached := filepath.Join(filepath.Dir(report.OutputPath), "..", "raw", "2020", "2020_2020.zip")
	data, readErr := os.ReadFile(cached)
	require.NoError(t, readErr)
	assert.Equal(t, f.archives["/2020.zip"], data)
}

func TestFetcher_Run_NoData(t *testing.T) {
	f := newPortalFixture(t)
	f.index = `<html><body><a href="/2020.zip">ANO 2020 (AUTOMÁTICA)</a></body></html>`
	f.archives["/2020.zip"] = buildArchive(t, map[string][]byte{
		otherStationMember: []byte("DATA;TEMPERATURA MEDIA\n2020-01-01;20\n"),
	})

	fetcher, outPath := newFetcher(t, f, nil)
	report, err := fetcher.Run(context.Background(), []int{2020})

	require.ErrorIs(t, err, domain.ErrNoData)
	require.NotNil(t, report)
	assert.True(t, report.Empty())
	assert.Contains(t, report.Summary(), "no data found")

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "no output file may be written")
}

func TestFetcher_Run_FailuresAreIsolated(t *testing.T) {
	f := newPortalFixture(t)
	// 2019's archive URL 404s; 2020 contains one undecodable station member
	// and one good one. The run still produces 2020's good rows.
	f.index = `<html><body>
		<a href="/2019.zip">ANO 2019 (AUTOMÁTICA)</a>
		<a href="/2020.zip">ANO 2020 (AUTOMÁTICA)</a>
	</body></html>`
	f.archives["/2020.zip"] = buildArchive(t, map[string][]byte{
		"INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_broken.CSV": []byte("no delimiters at all"),
		stationMember2020: []byte("DATA;UMIDADE RELATIVA\n2020-01-01;80\n"),
	})

	fetcher, _ := newFetcher(t, f, nil)
	report, err := fetcher.Run(context.Background(), []int{2019, 2020})
	require.NoError(t, err)

	assert.Equal(t, 1, report.CombinedRows)
	require.Len(t, report.Skips, 2)
	stages := []string{report.Skips[0].Stage, report.Skips[1].Stage}
	assert.Contains(t, stages, "year")   // 2019 retrieval failed
	assert.Contains(t, stages, "member") // undecodable member skipped
}

func TestFetcher_Run_SinkFailureIsNotFatal(t *testing.T) {
	f := newPortalFixture(t)
	f.index = `<html><body><a href="/2020.zip">ANO 2020 (AUTOMÁTICA)</a></body></html>`
	f.archives["/2020.zip"] = buildArchive(t, map[string][]byte{
		stationMember2020: []byte("DATA;PRECIPITACAO\n2020-01-01;1\n"),
	})

	sink := &fakeSink{err: errors.New("broker unreachable")}
	fetcher, outPath := newFetcher(t, f, sink)

	report, err := fetcher.Run(context.Background(), []int{2020})
	require.NoError(t, err)
	assert.Equal(t, 1, report.CombinedRows)

	_, statErr := os.Stat(outPath)
	assert.NoError(t, statErr, "combined file is written even when the sink fails")

	require.NotEmpty(t, report.Skips)
	assert.Equal(t, "sink", report.Skips[len(report.Skips)-1].Stage)
	// The sink skip belongs to the run, not to any year.
	assert.Contains(t, report.Summary(), "[run/sink]")
}

func TestFetcher_Run_IndexUnreachable(t *testing.T) {
	f := newPortalFixture(t)

	tmp := t.TempDir()
	cfg := pipeline.Config{
		BaseURL:      f.url() + "/missing-index", // 404s
		Origin:       f.url(),
		RawDir:       filepath.Join(tmp, "raw"),
		CombinedPath: filepath.Join(tmp, "combined.csv"),
		Station:      domain.NewStation("SAO LUIZ DO PARAITINGA"),
	}
	client := portal.NewClient(5*time.Second, "test-agent", slog.Default())
	fetcher := pipeline.New(client, cfg, nil, slog.Default(), observability.NewMetricsForTesting())

	_, err := fetcher.Run(context.Background(), []int{2020})
	require.Error(t, err)
	var reqErr *portal.RequestError
	assert.ErrorAs(t, err, &reqErr)
}
