package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/courtsight/atp-ingest/external/atptour"
	"github.com/courtsight/atp-ingest/external/infosys"
	"github.com/courtsight/atp-ingest/internal/config"
	"github.com/courtsight/atp-ingest/internal/extract"
	"github.com/courtsight/atp-ingest/internal/infrastructure/repository/duckdb"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
	"github.com/courtsight/atp-ingest/internal/platform/resilience"
	"github.com/courtsight/atp-ingest/internal/staging"
	"github.com/courtsight/atp-ingest/internal/usecase"
)

func main() {
	year := flag.Int("year", time.Now().UTC().Year(), "season to ingest")
	matchTypes := flag.String("match-types", "singles", "comma-separated results page match types")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.NewJSON(logging.LevelError)
		boot.Error("load config", "error", err)
		boot.Sync()
		os.Exit(1)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *year, splitCSV(*matchTypes), logger); err != nil {
		logger.ErrorContext(ctx, "run failed", "year", *year, "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, year int, matchTypes []string, logger *logging.Logger) error {
	client := atptour.NewClient(atptour.ClientConfig{
		BaseURL:          cfg.ATPBaseURL,
		ArchivePath:      cfg.ATPArchivePath,
		CalendarAPIPath:  cfg.ATPCalendarAPIPath,
		HawkeyeTemplate:  cfg.HawkeyeURLTemplate,
		InfosysBaseURL:   cfg.InfosysBaseURL,
		InfosysEndpoints: cfg.InfosysEndpoints,
		Timeout:          cfg.HTTPTimeout,
		MaxRetries:       cfg.FetchMaxRetries,
		RetryBaseDelay:   cfg.FetchRetryBaseDelay,
		RetryMaxDelay:    cfg.FetchRetryMaxDelay,
		PolitenessDelay:  cfg.FetchPolitenessDelay,
		Logger:           logger,
		CircuitBreaker:   resilience.DefaultBreakerConfig(),
	})

	stager, err := staging.NewFilesystemWriter(cfg.StagingDir, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.WarehousePath), 0o755); err != nil {
		return err
	}
	store, err := duckdb.Open(ctx, cfg.WarehousePath)
	if err != nil {
		return err
	}
	defer store.Close()

	loader := duckdb.NewLoader(store, duckdb.NewLedgerRepository(store), logger)

	statTypes := make([]string, 0, len(cfg.InfosysEndpoints))
	for name := range cfg.InfosysEndpoints {
		statTypes = append(statTypes, name)
	}
	sort.Strings(statTypes)

	pipeline := usecase.NewPipeline(
		usecase.NewCalendarService(client, extract.NewCalendarExtractor(logger), stager, client.BaseURL(), logger),
		usecase.NewTournamentService(client, extract.NewMatchExtractor(logger), stager, client.BaseURL(), logger),
		usecase.NewStatsService(client, infosys.NewDecoder(), stager, statTypes, cfg.StatsWorkerCount, logger),
		usecase.NewLoadService(loader, cfg.WarehouseTableMap, logger),
		matchTypes,
		cfg.RunTimeout,
		logger,
	)

	report, err := pipeline.RunYear(ctx, year)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "ingestion finished",
		"year", report.Year,
		"tournaments_found", report.TournamentsFound,
		"tournaments_fetched", report.TournamentsFetched,
		"tournaments_failed", report.TournamentsFailed,
		"matches", report.MatchesExtracted,
		"matches_skipped", report.MatchesSkipped,
		"stats_ok", report.StatsSucceeded,
		"stats_failed", report.StatsFailed,
		"fresh_loads", report.Load.Fresh,
		"noop_loads", report.Load.NoOps,
		"failed_loads", report.Load.Fails,
		"rows_loaded", report.Load.Rows,
	)
	return nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
