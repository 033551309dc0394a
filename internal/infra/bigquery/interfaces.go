package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// DocumentRepository provides an interface for statement-related database operations.
type DocumentRepository interface {
	// InsertDocument inserts a single DocumentRow into the database.
	InsertDocument(ctx context.Context, row *DocumentRow) error

	// FindDocumentByChecksum returns nil when no document has the checksum.
	FindDocumentByChecksum(ctx context.Context, checksum string) (*DocumentRow, error)

	// StartParsingRun inserts a new parsing run with status=RUNNING and returns the parsing_run_id.
	StartParsingRun(ctx context.Context, documentID string) (string, error)

	// MarkParsingRunFailed sets status=FAILED, finished_ts and error_message for a parsing run.
	MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error)

	// MarkParsingRunSucceeded sets status=SUCCESS, finished_ts and the run summary.
	MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, summary RunSummary) error

	// InsertTransactions inserts a batch of card transactions.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// ListTransactionsByDocument returns the rows of the latest successful run for a document.
	ListTransactionsByDocument(ctx context.Context, documentID string) ([]*TransactionRow, error)
}

// BigQueryDocumentRepository is the concrete implementation of DocumentRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryDocumentRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

var _ DocumentRepository = (*BigQueryDocumentRepository)(nil)

// NewBigQueryDocumentRepository creates a repository for projectID.datasetID.
func NewBigQueryDocumentRepository(ctx context.Context, projectID, datasetID string) (*BigQueryDocumentRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryDocumentRepository: creating client: %w", err)
	}
	return NewBigQueryDocumentRepositoryWithClient(client, datasetID), nil
}

// NewBigQueryDocumentRepositoryWithClient wraps an existing client.
func NewBigQueryDocumentRepositoryWithClient(client *bigquery.Client, datasetID string) *BigQueryDocumentRepository {
	return &BigQueryDocumentRepository{
		client:    client,
		projectID: client.Project(),
		datasetID: datasetID,
	}
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *BigQueryDocumentRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryDocumentRepository) table(name string) *bigquery.Table {
	return r.client.DatasetInProject(r.projectID, r.datasetID).Table(name)
}

// qualified returns the backtick-quoted project.dataset.table name for SQL.
func (r *BigQueryDocumentRepository) qualified(name string) string {
	return qualifiedTable(r.projectID, r.datasetID, name)
}

func qualifiedTable(projectID, datasetID, name string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, name)
}

// runQuery runs a DML statement and waits for it to finish.
func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
