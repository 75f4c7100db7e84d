// Package main loads a raw retail export (CSV or XLSX) into PostgreSQL.
// Rows are keyed by source row number, so the table holds one export.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retail-demand-lab/internal/config"
	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/logger"
	"retail-demand-lab/internal/source"
	"retail-demand-lab/internal/storage"
	"retail-demand-lab/internal/storage/migrations"
	pgstore "retail-demand-lab/internal/storage/postgres"
)

// DefaultBatchSize bounds the rows sent per InsertBulk call.
const DefaultBatchSize = 5000

func main() {
	// Parse flags
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config")
	input := flag.String("input", "", "Input file (default: dataset.raw_path)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (default: storage.postgres_dsn)")
	batchSize := flag.Int("batch-size", DefaultBatchSize, "Rows per insert batch")
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
	log = logger.WithComponent(log, "ingest")

	path := cfg.Dataset.RawPath
	if *input != "" {
		path = *input
	}
	dsn := cfg.Storage.PostgresDSN
	if *postgresDSN != "" {
		dsn = *postgresDSN
	}
	if path == "" {
		log.Fatal().Msg("no input file: set dataset.raw_path or --input")
	}
	if dsn == "" {
		log.Fatal().Msg("no database: set storage.postgres_dsn or --postgres-dsn")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("received signal, cancelling ingest")
		cancel()
	}()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("input file not found, nothing to do")
		return
	}

	start := time.Now()
	txs, report, err := source.Load(ctx, path, source.Options{
		Encoding: source.Encoding(cfg.Dataset.Encoding),
		Policy:   source.Policy(cfg.Dataset.MalformedRows),
		Sheet:    cfg.Dataset.Sheet,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("load failed")
	}
	log.Info().
		Str("format", report.Format).
		Int("rows", report.Rows).
		Int("loaded", report.Loaded).
		Int("skipped", report.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("file loaded")

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("postgres migrations")
	}

	store := pgstore.NewTransactionStore(pool)
	inserted, err := insertBatches(ctx, store, txs, *batchSize)
	if errors.Is(err, storage.ErrDuplicateKey) {
		log.Error().Int("inserted", inserted).Msg("transactions already holds an export keyed by row number; truncate it to load another file")
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Int("inserted", inserted).Msg("insert failed")
	}

	total, err := store.Count(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("count transactions")
	}
	log.Info().
		Int("inserted", inserted).
		Int("stored", total).
		Dur("elapsed", time.Since(start)).
		Msg("ingest complete")
}

// insertBatches writes txs in chunks of size and returns how many rows were stored.
// Each chunk is atomic; a failed chunk stops the ingest.
func insertBatches(ctx context.Context, store storage.TransactionStore, txs []domain.Transaction, size int) (int, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}
	log := logger.FromContext(ctx)

	inserted := 0
	for start := 0; start < len(txs); start += size {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		end := min(start+size, len(txs))
		if err := store.InsertBulk(ctx, txs[start:end]); err != nil {
			return inserted, fmt.Errorf("insert rows %d-%d: %w", txs[start].Seq, txs[end-1].Seq, err)
		}
		inserted += end - start
		log.Debug().Int("inserted", inserted).Int("total", len(txs)).Msg("batch stored")
	}
	return inserted, nil
}
