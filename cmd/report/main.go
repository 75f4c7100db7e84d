// Package main regenerates the product table and summary of a stored run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"retail-demand-lab/internal/config"
	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/logger"
	"retail-demand-lab/internal/reporting"
	"retail-demand-lab/internal/storage"
	chstore "retail-demand-lab/internal/storage/clickhouse"
	pgstore "retail-demand-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	runID := flag.String("run-id", "", "Run to report (default: latest)")
	list := flag.Bool("list", false, "List stored runs and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewFromConfig(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	log = logger.WithComponent(log, "report")
	ctx := logger.WithContext(context.Background(), log)

	if cfg.Storage.PostgresDSN == "" {
		log.Fatal().Msg("storage.postgres_dsn is required: runs are stored in PostgreSQL")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	runStore := pgstore.NewClassificationRunStore(pool)
	recordStore := pgstore.NewProductRecordStore(pool)

	if *list {
		runs, err := runStore.List(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("list runs")
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  products=%d months=%d\n",
				r.RunID, time.UnixMilli(r.CreatedAt).UTC().Format(time.RFC3339), r.ProductCount, r.MonthCount)
		}
		return
	}

	var monthly storage.MonthlySalesStore
	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to clickhouse")
		}
		defer conn.Close()
		monthly = chstore.NewMonthlySalesStore(conn)
	}

	paths, err := generate(ctx, runStore, recordStore, monthly, *runID, *outputDir)
	if errors.Is(err, storage.ErrNotFound) {
		log.Fatal().Str("run_id", *runID).Msg("run not found")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	for _, p := range paths {
		log.Info().Str("file", p).Msg("written")
	}
}

// generate writes <run_id>.csv and <run_id>.md for runID, or for the latest run
// when runID is empty. monthly is optional.
func generate(
	ctx context.Context,
	runs storage.ClassificationRunStore,
	records storage.ProductRecordStore,
	monthly storage.MonthlySalesStore,
	runID, outputDir string,
) ([]string, error) {
	var (
		run *domain.ClassificationRun
		err error
	)
	if runID == "" {
		run, err = runs.GetLatest(ctx)
	} else {
		run, err = runs.GetByID(ctx, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	recs, err := records.GetByRunID(ctx, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("get product records: %w", err)
	}

	var cells []domain.MonthlySalesCell
	if monthly != nil {
		cells, err = monthly.GetByRunID(ctx, run.RunID)
		if err != nil {
			return nil, fmt.Errorf("get monthly sales: %w", err)
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	csvOut, err := reporting.RenderCSV(recs)
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	csvPath := filepath.Join(outputDir, run.RunID+".csv")
	if err := os.WriteFile(csvPath, []byte(csvOut), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", csvPath, err)
	}

	md := reporting.RenderMarkdown(reporting.NewGenerator().GenerateFromRun(run, recs, cells))
	mdPath := filepath.Join(outputDir, run.RunID+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", mdPath, err)
	}

	return []string{csvPath, mdPath}, nil
}
