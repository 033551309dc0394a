package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/fatura-itau/internal/logger"
)

const (
	parsingRunsTable = "parsing_runs"

	ParserType    = "ITAU_PDF_TEXT"
	ParserVersion = "v1"

	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"

	maxErrorMessageLen = 2000
)

type ParsingRunRow struct {
	ParsingRunID string `bigquery:"parsing_run_id"` // REQUIRED
	DocumentID   string `bigquery:"document_id"`    // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	ParserType    string `bigquery:"parser_type"`    // NULLABLE
	ParserVersion string `bigquery:"parser_version"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	DueDate     bigquery.NullDate  `bigquery:"due_date"`     // NULLABLE
	RecordCount bigquery.NullInt64 `bigquery:"record_count"` // NULLABLE
	ExportURI   string             `bigquery:"export_uri"`   // NULLABLE

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE
}

// RunSummary is recorded on a parsing run when it succeeds.
type RunSummary struct {
	DueDate     civil.Date
	RecordCount int
	ExportURI   string
	// Stats is stored as JSON in the metadata column.
	Stats any
}

// StartParsingRun inserts a new row into parsing_runs with status=RUNNING
// and returns the generated parsing_run_id. DML is used instead of the
// streaming inserter so the row can be updated right away.
func (r *BigQueryDocumentRepository) StartParsingRun(ctx context.Context, documentID string) (string, error) {
	parsingRunID := newID()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s (
			parsing_run_id,
			document_id,
			started_ts,
			parser_type,
			parser_version,
			status
		)
		VALUES (
			@parsing_run_id,
			@document_id,
			@started_ts,
			@parser_type,
			@parser_version,
			@status
		)
	`, r.qualified(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "parser_type", Value: ParserType},
		{Name: "parser_version", Value: ParserVersion},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runQuery(ctx, q); err != nil {
		return "", fmt.Errorf("StartParsingRun: %w", err)
	}
	return parsingRunID, nil
}

// MarkParsingRunFailed sets status=FAILED, finished_ts and error_message.
// Failures are logged, not returned: the caller is already handling parseErr.
func (r *BigQueryDocumentRepository) MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) {
	log := logger.FromContext(ctx)

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE parsing_run_id = @parsing_run_id
	`, r.qualified(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(parseErr)},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := runQuery(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("parsing_run_id", parsingRunID).
			Msg("MarkParsingRunFailed: update failed")
	}
}

// MarkParsingRunSucceeded sets status=SUCCESS, finished_ts and the summary
// columns, and clears error_message.
func (r *BigQueryDocumentRepository) MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, summary RunSummary) error {
	meta, err := json.Marshal(summary.Stats)
	if err != nil {
		return fmt.Errorf("MarkParsingRunSucceeded: encoding stats: %w", err)
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    due_date = @due_date,
		    record_count = @record_count,
		    export_uri = @export_uri,
		    metadata = PARSE_JSON(@metadata)
		WHERE parsing_run_id = @parsing_run_id
	`, r.qualified(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "due_date", Value: summary.DueDate},
		{Name: "record_count", Value: summary.RecordCount},
		{Name: "export_uri", Value: summary.ExportURI},
		{Name: "metadata", Value: string(meta)},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkParsingRunSucceeded: %w", err)
	}
	return nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
