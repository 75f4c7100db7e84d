// Package main provides the classification pipeline entry point.
// Executes: load transactions → filter → aggregate → features → thresholds → classify → write outputs
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"retail-demand-lab/internal/config"
	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/logger"
	"retail-demand-lab/internal/observability"
	"retail-demand-lab/internal/orchestrator"
	"retail-demand-lab/internal/reporting"
	"retail-demand-lab/internal/source"
	"retail-demand-lab/internal/storage"
	chstore "retail-demand-lab/internal/storage/clickhouse"
	"retail-demand-lab/internal/storage/memory"
	"retail-demand-lab/internal/storage/migrations"
	pgstore "retail-demand-lab/internal/storage/postgres"
)

// SummaryFile is the markdown run summary written next to the product table.
const SummaryFile = "quadrant_summary.md"

func main() {
	// Parse flags
	configPath := flag.String("config", config.DefaultPath, "Path to YAML config")
	outputDir := flag.String("output-dir", "", "Directory for the run summary (default: directory of dataset.final_path)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
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
	log = logger.WithComponent(log, "pipeline-cmd")

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("received signal, cancelling pipeline")
		cancel()
	}()

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("", reg)
	if *metricsAddr != "" {
		startMetricsServer(log, *metricsAddr, reg)
	}

	if err := run(ctx, cfg, runOptions{OutputDir: *outputDir, Metrics: m}); err != nil {
		log.Error().Err(err).Msg("pipeline failed")
		os.Exit(1)
	}
}

// startMetricsServer serves /metrics and /health in the background.
func startMetricsServer(log zerolog.Logger, addr string, reg *prometheus.Registry) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler(reg))
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		log.Info().Str("addr", addr).Msg("starting metrics server")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
}

type runOptions struct {
	OutputDir string
	Metrics   *observability.Metrics
	RunID     func() string    // nil uses a random UUID
	Clock     func() time.Time // nil uses time.Now
}

// stores holds the run stores and the closers of their connections.
type stores struct {
	transactions storage.TransactionStore // nil for file input
	runs         storage.ClassificationRunStore
	records      storage.ProductRecordStore
	monthly      storage.MonthlySalesStore
	analytics    storage.ProductRecordStore // ClickHouse copy when Postgres holds the records
	storeName    string
	closers      []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// run executes one classification run described by cfg.
// A missing input file is not an error: nothing is written.
func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	log := logger.FromContext(ctx)
	params := cfg.DomainParams()

	var (
		txs    []domain.Transaction
		report source.LoadReport
	)
	if cfg.Dataset.Source == config.SourceFile {
		if _, err := os.Stat(cfg.Dataset.RawPath); errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", cfg.Dataset.RawPath).Msg("input file not found, nothing to do")
			return nil
		}

		var err error
		txs, report, err = source.Load(ctx, cfg.Dataset.RawPath, source.Options{
			Encoding: source.Encoding(cfg.Dataset.Encoding),
			Policy:   source.Policy(cfg.Dataset.MalformedRows),
			Sheet:    cfg.Dataset.Sheet,
		})
		if err != nil {
			return fmt.Errorf("load %s: %w", cfg.Dataset.RawPath, err)
		}
		opts.Metrics.RecordLoaded(config.SourceFile, report.Loaded, report.Skipped)
		for _, rowErr := range report.Errors {
			log.Debug().Int64("row", rowErr.Row).Str("column", rowErr.Column).Err(rowErr.Err).Msg("skipped malformed row")
		}
		log.Info().
			Str("format", report.Format).
			Int("rows", report.Rows).
			Int("loaded", report.Loaded).
			Int("skipped", report.Skipped).
			Msg("transactions loaded")
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	orch := orchestrator.New(orchestrator.Options{
		TransactionStore: st.transactions,
		RunStore:         st.runs,
		RecordStore:      st.records,
		MonthlyStore:     st.monthly,
		Params:           params,
		Workers:          cfg.Pipeline.Workers,
		Metrics:          opts.Metrics,
		StoreName:        st.storeName,
		Clock:            opts.Clock,
		NewRunID:         opts.RunID,
	})

	var result *orchestrator.RunResult
	if st.transactions != nil {
		result, err = orch.Run(ctx)
	} else {
		result, err = orch.Execute(ctx, txs)
	}
	if err != nil {
		return err
	}

	if st.analytics != nil {
		if err := st.analytics.InsertBulk(ctx, result.Run.RunID, result.Result.Records); err != nil {
			return fmt.Errorf("insert analytics records: %w", err)
		}
	}

	if err := writeProducts(cfg.Dataset.FinalPath, result.Result.Records); err != nil {
		return err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(cfg.Dataset.FinalPath)
	}
	gen := reporting.NewGenerator()
	if opts.Clock != nil {
		gen = gen.WithClock(opts.Clock)
	}
	summary := gen.Generate(result.Run.RunID, params, result.Result, report.Skipped)
	summaryPath := filepath.Join(outputDir, SummaryFile)
	if err := writeFile(summaryPath, []byte(reporting.RenderMarkdown(summary))); err != nil {
		return err
	}

	log.Info().
		Str("run_id", result.Run.RunID).
		Str("products_csv", cfg.Dataset.FinalPath).
		Str("summary", summaryPath).
		Int("products", result.Run.ProductCount).
		Msg("pipeline completed")
	return nil
}

// openStores picks storage backends from cfg. Without DSNs every store is in-memory.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{
		runs:      memory.NewClassificationRunStore(),
		records:   memory.NewProductRecordStore(),
		storeName: "memory",
	}

	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			st.close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}

		st.runs = pgstore.NewClassificationRunStore(pool)
		st.records = pgstore.NewProductRecordStore(pool)
		st.storeName = "postgres"
		if cfg.Dataset.Source == config.SourcePostgres {
			st.transactions = pgstore.NewTransactionStore(pool)
		}
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.closers = append(st.closers, func() { conn.Close() })

		st.monthly = chstore.NewMonthlySalesStore(conn)
		if cfg.Storage.PostgresDSN != "" {
			st.analytics = chstore.NewProductRecordStore(conn)
		} else {
			st.records = chstore.NewProductRecordStore(conn)
		}
	}

	return st, nil
}

func writeProducts(path string, records []*domain.ProductRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := reporting.WriteProductsCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
