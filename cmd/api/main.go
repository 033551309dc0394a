// Command api serves statement conversion over HTTP and runs batch ingestion
// jobs against Cloud Storage and BigQuery.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/fatura-itau/internal/api/handlers"
	"github.com/dvloznov/fatura-itau/internal/config"
	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/jobs"
	"github.com/dvloznov/fatura-itau/internal/jobs/boltstore"
	"github.com/dvloznov/fatura-itau/internal/jobs/inmemory"
	"github.com/dvloznov/fatura-itau/internal/logger"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/pipeline"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	flags := ff.NewFlagSet("api")
	cfg.RegisterFlags(flags)
	if err := ff.Parse(flags, os.Args[1:], ff.WithEnvVarPrefix(config.EnvPrefix)); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		if errors.Is(err, ff.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("API server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx := logger.WithContext(context.Background(), log)

	parserOpts, err := cfg.ParserOptions()
	if err != nil {
		return err
	}
	parser := statement.NewParser(append(parserOpts, statement.WithLogger(log))...)
	converter := &pipeline.Converter{
		Extractor: pdftext.NewExtractor(cfg.Password),
		Parser:    parser,
	}

	store, closeStore, err := openJobStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	routerCfg := handlers.RouterConfig{
		Converter: converter,
		JobStore:  store,
		APIKey:    cfg.APIKey,
		Log:       log,
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var queue *inmemory.Queue
	if err := cfg.RequireCloud(); err != nil {
		log.Warn().Err(err).Msg("Cloud not configured - batch jobs are disabled")
	} else {
		deps, err := pipeline.NewCloudDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer deps.Close()
		if err := deps.EnsureTables(ctx); err != nil {
			return err
		}

		queue = inmemory.NewQueue(cfg.QueueSize, store, inmemory.WithWorkers(cfg.Workers))
		handler := jobs.NewConvertBatchHandler(ingestFunc(&deps.Deps))
		if err := queue.Start(workerCtx, handler); err != nil {
			return err
		}
		log.Info().Int("workers", cfg.Workers).Msg("Started job workers")
		routerCfg.Publisher = queue
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handlers.NewRouter(routerCfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if queue != nil {
		if err := queue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}

	log.Info().Msg("Server exited")
	return nil
}

// openJobStore returns the bbolt store when a database path is configured,
// otherwise an in-memory store that is lost on restart.
func openJobStore(cfg config.Config) (jobs.JobStore, func(), error) {
	if cfg.JobDB == "" {
		return inmemory.NewStore(), func() {}, nil
	}
	store, err := boltstore.Open(cfg.JobDB)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// ingestFunc adapts the ingestion pipeline to the batch job handler.
func ingestFunc(deps *pipeline.Deps) jobs.IngestFunc {
	return func(ctx context.Context, gcsURI string) (jobs.DocumentResult, error) {
		res := jobs.DocumentResult{GCSURI: gcsURI}
		state, err := pipeline.IngestStatementFromGCSWithDeps(ctx, gcsURI, deps)
		if state != nil {
			res.DocumentID = state.DocumentID
			res.ParsingRunID = state.ParsingRunID
			res.ExportURI = state.ExportURI
		}
		if err != nil {
			return res, err
		}
		doc := export.Document{Records: state.Result.Records}
		res.Records = len(doc.Records)
		res.Total = export.Total(doc).StringFixed(2)
		return res, nil
	}
}
