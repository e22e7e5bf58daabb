// Command fetch downloads INMET historical weather archives for one station
// and combines them into a single normalized CSV.
//
// Usage:
//
//	fetch --years 2018-2024 --raw-dir data/raw --out data/combined.csv
//
// Configuration beyond the flags (portal URL, station name, timeouts, the
// optional Kafka sink and metrics endpoint) comes from the environment; a
// .env file in the working directory is honored.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	httpadapter "github.com/vfurtado/inmet-station-etl/internal/adapter/http"
	kafkaadapter "github.com/vfurtado/inmet-station-etl/internal/adapter/kafka"
	"github.com/vfurtado/inmet-station-etl/internal/adapter/portal"
	"github.com/vfurtado/inmet-station-etl/internal/config"
	"github.com/vfurtado/inmet-station-etl/internal/domain"
	"github.com/vfurtado/inmet-station-etl/internal/observability"
	"github.com/vfurtado/inmet-station-etl/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		yearsSpec string
		rawDir    string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:           "fetch",
		Short:         "Download and combine INMET historical data for one station",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), yearsSpec, rawDir, outPath)
		},
	}
	cmd.Flags().StringVar(&yearsSpec, "years", "all", `years to fetch: "all", "start-end", or a comma/space list`)
	cmd.Flags().StringVar(&rawDir, "raw-dir", "", "directory for raw archive cache (overrides RAW_DIR)")
	cmd.Flags().StringVar(&outPath, "out", "", "path of the combined CSV (overrides COMBINED_PATH)")
	return cmd
}

func run(ctx context.Context, yearsSpec, rawDir, outPath string) error {
	godotenv.Load() //nolint:errcheck // a missing .env is fine

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	if rawDir != "" {
		cfg.RawDir = rawDir
	}
	if outPath != "" {
		cfg.CombinedPath = outPath
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	years, err := domain.ParseYears(yearsSpec)
	if err != nil {
		logger.Error("invalid year spec", "years", yearsSpec, "error", err)
		return err
	}

	station := domain.NewStation(cfg.StationName)
	client := portal.NewClient(cfg.RequestTimeout, cfg.UserAgent, logger)

	// Kafka publishing is feature-flagged via KAFKA_BROKERS.
	var sink pipeline.RecordSink
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, station, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sink = writer
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic)
	}

	fetcher := pipeline.New(client, pipeline.Config{
		BaseURL:      cfg.BaseURL,
		Origin:       cfg.PortalOrigin,
		RawDir:       cfg.RawDir,
		CombinedPath: cfg.CombinedPath,
		Station:      station,
		Progress:     true,
	}, sink, logger, metrics)

	// Metrics endpoint for long runs, opt-in via HTTP_ADDR.
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, fetcher, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	logger.Info("fetch starting",
		"station", station.Name,
		"station_slug", station.Slug(),
		"years", len(years),
		"first", years[0],
		"last", years[len(years)-1],
	)

	report, err := fetcher.Run(ctx, years)
	switch {
	case errors.Is(err, domain.ErrNoData):
		// The reference behavior: report, but exit normally.
		fmt.Print(report.Summary())
		return nil
	case err != nil:
		logger.Error("fetch failed", "error", err)
		return err
	default:
		fmt.Print(report.Summary())
		return nil
	}
}
