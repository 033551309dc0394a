package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/fatura-itau/internal/config"
	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/gcsuploader"
	infra "github.com/dvloznov/fatura-itau/internal/infra/bigquery"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

// Deps holds everything the ingestion steps talk to.
type Deps struct {
	Repo      infra.DocumentRepository
	Storage   StorageService
	Extractor PageExtractor
	Parser    StatementParser

	// ExportBucket receives a rendered copy of each parsed statement.
	// Empty disables the upload step.
	ExportBucket string
	ExportPrefix string
	ExportFormat export.Format

	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) validate() error {
	var errs []error
	if d.Repo == nil {
		errs = append(errs, errors.New("repository is required"))
	}
	if d.Storage == nil {
		errs = append(errs, errors.New("storage is required"))
	}
	if d.Extractor == nil {
		errs = append(errs, errors.New("extractor is required"))
	}
	if d.Parser == nil {
		errs = append(errs, errors.New("parser is required"))
	}
	return errors.Join(errs...)
}

// CloudDeps are Deps backed by real BigQuery and Cloud Storage clients.
type CloudDeps struct {
	Deps
	repo    *infra.BigQueryDocumentRepository
	storage *gcsuploader.GCSStorageService
}

// NewCloudDeps opens the clients cfg points at. Close releases them.
func NewCloudDeps(ctx context.Context, cfg config.Config) (*CloudDeps, error) {
	if err := cfg.RequireCloud(); err != nil {
		return nil, err
	}
	opts, err := cfg.ParserOptions()
	if err != nil {
		return nil, err
	}

	repo, err := infra.NewBigQueryDocumentRepository(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		return nil, err
	}
	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return &CloudDeps{
		Deps: Deps{
			Repo:         repo,
			Storage:      storage,
			Extractor:    pdftext.NewExtractor(cfg.Password),
			Parser:       statement.NewParser(opts...),
			ExportBucket: cfg.Bucket,
			ExportPrefix: cfg.ExportPrefix,
			ExportFormat: cfg.OutputFormat(),
		},
		repo:    repo,
		storage: storage,
	}, nil
}

// EnsureTables creates missing BigQuery tables.
func (c *CloudDeps) EnsureTables(ctx context.Context) error {
	return c.repo.EnsureTables(ctx)
}

// Close closes both clients.
func (c *CloudDeps) Close() error {
	var errs []error
	if err := c.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing bigquery: %w", err))
	}
	if err := c.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing storage: %w", err))
	}
	return errors.Join(errs...)
}
