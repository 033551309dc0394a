package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/fatura-itau/internal/logger"
)

// tableSchemas maps each table to the row type whose struct tags define it.
var tableSchemas = map[string]any{
	documentsTable:    DocumentRow{},
	parsingRunsTable:  ParsingRunRow{},
	transactionsTable: TransactionRow{},
}

// EnsureTables creates the dataset's tables that do not exist yet.
// Existing tables are left untouched.
func (r *BigQueryDocumentRepository) EnsureTables(ctx context.Context) error {
	log := logger.FromContext(ctx)

	for _, name := range []string{documentsTable, parsingRunsTable, transactionsTable} {
		table := r.table(name)
		_, err := table.Metadata(ctx)
		if err == nil {
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("EnsureTables: reading %s metadata: %w", name, err)
		}

		schema, err := bigquery.InferSchema(tableSchemas[name])
		if err != nil {
			return fmt.Errorf("EnsureTables: inferring %s schema: %w", name, err)
		}
		if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
			return fmt.Errorf("EnsureTables: creating %s: %w", name, err)
		}
		log.Info().Str("table", name).Msg("Created BigQuery table")
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
