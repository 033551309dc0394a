// Package config holds the settings shared by the CLI and the API server.
package config

import (
	"errors"
	"fmt"

	"github.com/peterbourgon/ff/v4"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

// EnvPrefix prefixes every environment variable, e.g. FATURA_BUCKET.
const EnvPrefix = "FATURA"

const (
	DefaultProjectID    = "fatura-itau"
	DefaultDatasetID    = "fatura"
	DefaultExportPrefix = "exports/"
	DefaultUploadPrefix = "statements/"
	DefaultAddr         = ":8080"
	DefaultWorkers      = 5
	DefaultQueueSize    = 100
)

// Config is populated from flags, environment and an optional .env file.
type Config struct {
	ProjectID    string
	DatasetID    string
	Bucket       string
	ExportPrefix string
	UploadPrefix string

	Addr      string
	APIKey    string
	JobDB     string
	Workers   int
	QueueSize int

	LogLevel string
	LogJSON  bool

	IOFDiffMax string
	Format     string
	Password   string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ProjectID:    DefaultProjectID,
		DatasetID:    DefaultDatasetID,
		ExportPrefix: DefaultExportPrefix,
		UploadPrefix: DefaultUploadPrefix,
		Addr:         DefaultAddr,
		Workers:      DefaultWorkers,
		QueueSize:    DefaultQueueSize,
		LogLevel:     "info",
		IOFDiffMax:   fmt.Sprint(statement.DefaultIOFDiffMax),
		Format:       string(export.FormatCSV),
	}
}

// RegisterFlags binds every field of c to a long flag on fs, using the
// current values as defaults.
func (c *Config) RegisterFlags(fs *ff.FlagSet) {
	fs.StringVar(&c.ProjectID, 0, "project", c.ProjectID, "GCP project for BigQuery and Cloud Storage")
	fs.StringVar(&c.DatasetID, 0, "dataset", c.DatasetID, "BigQuery dataset")
	fs.StringVar(&c.Bucket, 0, "bucket", c.Bucket, "Cloud Storage bucket for statements and exports")
	fs.StringVar(&c.ExportPrefix, 0, "export-prefix", c.ExportPrefix, "object prefix for uploaded exports")
	fs.StringVar(&c.UploadPrefix, 0, "upload-prefix", c.UploadPrefix, "object prefix for uploaded statements")
	fs.StringVar(&c.Addr, 0, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.APIKey, 0, "api-key", c.APIKey, "API key required in X-API-Key (empty disables auth)")
	fs.StringVar(&c.JobDB, 0, "job-db", c.JobDB, "bbolt file for job state (empty keeps jobs in memory)")
	fs.IntVar(&c.Workers, 0, "workers", c.Workers, "concurrent batch workers")
	fs.IntVar(&c.QueueSize, 0, "queue-size", c.QueueSize, "pending job capacity")
	fs.StringVar(&c.LogLevel, 0, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&c.LogJSON, 0, "log-json", "emit JSON logs instead of console output")
	fs.StringVar(&c.IOFDiffMax, 0, "iof-diff-max", c.IOFDiffMax, "largest totals difference accepted as IOF, in reais")
	fs.StringVar(&c.Format, 0, "format", c.Format, "output format: csv, tsv or xlsx")
	fs.StringVar(&c.Password, 0, "password", c.Password, "password for encrypted statements")
}

// Validate checks values that flag parsing cannot.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.IOFBound(); err != nil {
		errs = append(errs, err)
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("config: workers must be positive, got %d", c.Workers))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("config: queue size must be positive, got %d", c.QueueSize))
	}
	return errors.Join(errs...)
}

// IOFBound parses IOFDiffMax.
func (c Config) IOFBound() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(c.IOFDiffMax)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: invalid iof-diff-max %q: %w", c.IOFDiffMax, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("config: iof-diff-max must not be negative, got %s", v)
	}
	return v, nil
}

// OutputFormat parses Format, falling back to CSV.
func (c Config) OutputFormat() export.Format {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return export.FormatCSV
	}
	return f
}

// RequireCloud reports an error when cloud settings are missing.
func (c Config) RequireCloud() error {
	if c.ProjectID == "" || c.DatasetID == "" || c.Bucket == "" {
		return errors.New("config: project, dataset and bucket are required")
	}
	return nil
}

// ParserOptions returns the statement parser options derived from c.
func (c Config) ParserOptions() ([]statement.Option, error) {
	bound, err := c.IOFBound()
	if err != nil {
		return nil, err
	}
	return []statement.Option{statement.WithIOFDiffMax(bound)}, nil
}
