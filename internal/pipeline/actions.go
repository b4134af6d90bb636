package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"pdfharvest/models"
	"pdfharvest/pkg/catalog"
	"pdfharvest/pkg/db"
	"pdfharvest/pkg/enrich"
	"pdfharvest/pkg/fetcher"
	"pdfharvest/pkg/textextract"
)

// RunReport is the structured output of a harvest run.
type RunReport struct {
	Summary        RunSummary   `json:"summary"`
	Items          []ItemOutput `json:"items"`
	DiscoveryError string       `json:"discovery_error,omitempty"`
}

func newLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("debug") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func loadConfig(c *cli.Context, logger *slog.Logger) *models.Config {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err, "path", c.String("config"))
		os.Exit(2)
	}
	if c.IsSet("workers") {
		cfg.Pipeline.WorkerCount = c.Int("workers")
	}
	if c.IsSet("limit") {
		cfg.Catalog.MaxCandidates = c.Int("limit")
	}
	return cfg
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// HarvestAction runs the full pipeline: discover candidates, download,
// extract text, enrich via the inference service, and persist.
func HarvestAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg := loadConfig(c, logger)

	ctx, stop := signalContext()
	defer stop()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.Database.Path)
		os.Exit(2)
	}
	defer database.Close()

	repo := db.NewRepository(database)
	if err := repo.Ping(ctx); err != nil {
		logger.Error("database is not usable", "error", err)
		os.Exit(2)
	}

	if err := os.MkdirAll(cfg.Download.Dir, 0755); err != nil {
		logger.Error("failed to create download directory", "error", err, "dir", cfg.Download.Dir)
		os.Exit(2)
	}

	runID := uuid.NewString()
	logger.Info("Harvest run starting", "run_id", runID, "database", cfg.Database.Path, "download_dir", cfg.Download.Dir)

	source := catalog.NewClient(cfg.Catalog, logger)
	orch := New(
		logger,
		fetcher.New(cfg.Download, repo, logger, runID),
		textextract.New(cfg.Extract),
		enrich.New(enrich.NewChatClient(cfg.AI), cfg.Prompts, cfg.AI, repo, runID),
		repo,
		cfg.Pipeline.WorkerCount,
		cfg.AI.MaxConcurrent,
		runID,
	)

	// Discovery and processing share one cancellable context so a
	// fatal abort also unblocks the catalog producer.
	runCtx, cancelRun := context.WithCancel(ctx)
	summary, results, runErr := orch.Run(runCtx, source.Stream(runCtx))
	cancelRun()

	report := RunReport{Summary: summary, Items: make([]ItemOutput, 0, len(results))}
	for _, r := range results {
		report.Items = append(report.Items, r.Output())
	}
	if discoveryErr := source.Err(); discoveryErr != nil {
		logger.Error("candidate discovery failed", "error", discoveryErr)
		report.DiscoveryError = discoveryErr.Error()
	}
	printJSON(report)

	if runErr != nil {
		logger.Error("run aborted", "error", runErr)
		os.Exit(2)
	}
	if summary.Failed() > 0 {
		logger.Warn("Run completed with item failures", "failed", summary.Failed(), "stored", summary.Stored)
	}
	return harvestOutcome(summary, report.DiscoveryError)
}

// harvestOutcome maps a completed run to the process outcome. Item
// failures are isolated and leave the exit status clean; a discovery
// failure means the candidate list itself is incomplete and surfaces
// as a non-zero exit.
func harvestOutcome(summary RunSummary, discoveryError string) error {
	if discoveryError != "" {
		return fmt.Errorf("candidate discovery failed after %d candidates: %s", summary.Candidates, discoveryError)
	}
	return nil
}

// DiscoverAction walks the catalog and prints candidates without
// downloading anything. Useful for checking query configuration.
func DiscoverAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg := loadConfig(c, logger)

	ctx, stop := signalContext()
	defer stop()

	source := catalog.NewClient(cfg.Catalog, logger)

	count := 0
	encoder := json.NewEncoder(os.Stdout)
	for item := range source.Stream(ctx) {
		if err := encoder.Encode(item); err != nil {
			logger.Error("failed to write candidate", "error", err)
			os.Exit(2)
		}
		count++
	}
	if err := source.Err(); err != nil {
		logger.Error("candidate discovery failed", "error", err)
		return fmt.Errorf("discovery failed after %d candidates: %w", count, err)
	}

	logger.Info("Discovery finished", "candidates", count)
	return nil
}

// StatusAction reports stored record and audit log counts.
func StatusAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg := loadConfig(c, logger)

	ctx, stop := signalContext()
	defer stop()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.Database.Path)
		os.Exit(2)
	}
	defer database.Close()

	stats, err := db.NewRepository(database).GetStats(ctx)
	if err != nil {
		logger.Error("failed to read stats", "error", err)
		os.Exit(2)
	}

	printJSON(map[string]any{
		"database":         cfg.Database.Path,
		"metadata_records": stats.MetadataRecords,
		"download_logs":    stats.DownloadLogs,
		"extraction_logs":  stats.ExtractionLogs,
	})
	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
