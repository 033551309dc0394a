// Package pipeline ingests statements stored in Cloud Storage into BigQuery,
// and converts local files for the CLI and the HTTP API.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/fatura-itau/internal/logger"
)

// IngestStatementFromGCSWithDeps processes a single statement PDF stored in GCS.
// gcsURI should look like: "gs://bucket/path/to/fatura.pdf".
func IngestStatementFromGCSWithDeps(ctx context.Context, gcsURI string, deps *Deps) (*PipelineState, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("IngestStatementFromGCS: %w", err)
	}

	log := logger.FromContext(ctx)
	state := &PipelineState{GCSURI: gcsURI}

	if err := NewStatementIngestionPipeline(deps).Execute(ctx, state); err != nil {
		log.Error().
			Err(err).
			Str("gcs_uri", gcsURI).
			Str("document_id", state.DocumentID).
			Str("parsing_run_id", state.ParsingRunID).
			Msg("Statement ingestion failed")
		return state, err
	}

	log.Info().
		Str("gcs_uri", gcsURI).
		Str("document_id", state.DocumentID).
		Str("parsing_run_id", state.ParsingRunID).
		Int("transactions", len(state.Result.Records)).
		Str("export_uri", state.ExportURI).
		Msg("Statement ingested")
	return state, nil
}
