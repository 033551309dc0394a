package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/gcsuploader"
	infra "github.com/dvloznov/fatura-itau/internal/infra/bigquery"
	"github.com/dvloznov/fatura-itau/internal/logger"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	GCSURI       string
	Filename     string
	Checksum     string
	DocumentID   string
	ParsingRunID string
	PDFBytes     []byte
	Pages        []pdftext.Page
	Result       *statement.Result
	ExportURI    string
}

// failRun marks the current parsing run FAILED when one was started.
func failRun(ctx context.Context, deps *Deps, state *PipelineState, err error) error {
	if state.ParsingRunID != "" {
		deps.Repo.MarkParsingRunFailed(ctx, state.ParsingRunID, err)
	}
	return err
}

// Step 1: FetchPDFStep fetches the PDF bytes from GCS and fingerprints them.
type FetchPDFStep struct{ Deps *Deps }

func (s *FetchPDFStep) Execute(ctx context.Context, state *PipelineState) error {
	pdfBytes, err := s.Deps.Storage.Fetch(ctx, state.GCSURI)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(pdfBytes)
	state.PDFBytes = pdfBytes
	state.Checksum = hex.EncodeToString(sum[:])
	state.Filename = gcsuploader.ExtractFilenameFromGCSURI(state.GCSURI)
	return nil
}

// Step 2: CreateDocumentStep inserts a document row, or reuses the document
// already stored with the same checksum so a re-ingest becomes a new run.
type CreateDocumentStep struct{ Deps *Deps }

func (s *CreateDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	existing, err := s.Deps.Repo.FindDocumentByChecksum(ctx, state.Checksum)
	if err != nil {
		return err
	}
	if existing != nil {
		log := logger.FromContext(ctx)
		log.Info().
			Str("document_id", existing.DocumentID).
			Str("gcs_uri", state.GCSURI).
			Msg("Document already ingested, starting a new parsing run")
		state.DocumentID = existing.DocumentID
		return nil
	}

	row := &infra.DocumentRow{
		DocumentID:       newDocumentID(),
		GCSURI:           state.GCSURI,
		DocumentType:     DefaultDocumentType,
		SourceSystem:     DefaultSourceSystem,
		UploadTS:         s.Deps.now(),
		OriginalFilename: state.Filename,
		FileMimeType:     PDFMimeType,
		ChecksumSHA256:   state.Checksum,
	}
	if err := s.Deps.Repo.InsertDocument(ctx, row); err != nil {
		return fmt.Errorf("createDocument: %w", err)
	}
	state.DocumentID = row.DocumentID
	return nil
}

// Step 3: StartParsingRunStep starts a parsing run (status=RUNNING).
type StartParsingRunStep struct{ Deps *Deps }

func (s *StartParsingRunStep) Execute(ctx context.Context, state *PipelineState) error {
	parsingRunID, err := s.Deps.Repo.StartParsingRun(ctx, state.DocumentID)
	if err != nil {
		return err
	}
	state.ParsingRunID = parsingRunID
	return nil
}

// Step 4: ExtractPagesStep reads page text and word positions.
type ExtractPagesStep struct{ Deps *Deps }

func (s *ExtractPagesStep) Execute(ctx context.Context, state *PipelineState) error {
	pages, err := s.Deps.Extractor.Extract(ctx, state.PDFBytes)
	if err != nil {
		return failRun(ctx, s.Deps, state, err)
	}
	state.Pages = pages
	return nil
}

// Step 5: ParseStatementStep runs the three extraction passes.
type ParseStatementStep struct{ Deps *Deps }

func (s *ParseStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	res, err := s.Deps.Parser.Parse(ctx, state.Pages)
	if err != nil {
		return failRun(ctx, s.Deps, state, err)
	}
	state.Result = res
	return nil
}

// Step 6: InsertTransactionsStep inserts the reconciled rows.
type InsertTransactionsStep struct{ Deps *Deps }

func (s *InsertTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	rows, err := toTransactionRows(state.DocumentID, state.ParsingRunID, state.Result.Records, s.Deps.now())
	if err != nil {
		return failRun(ctx, s.Deps, state, err)
	}
	if err := s.Deps.Repo.InsertTransactions(ctx, rows); err != nil {
		return failRun(ctx, s.Deps, state, err)
	}
	return nil
}

// Step 7: UploadExportStep stores the rendered table next to the document.
type UploadExportStep struct{ Deps *Deps }

func (s *UploadExportStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Deps.ExportBucket == "" {
		return nil
	}
	format := s.Deps.ExportFormat
	if format == "" {
		format = export.FormatCSV
	}

	var buf bytes.Buffer
	doc := export.Document{Source: state.Filename, Records: state.Result.Records}
	if err := export.Write(&buf, format, []export.Document{doc}, export.Options{}); err != nil {
		return failRun(ctx, s.Deps, state, err)
	}

	object := gcsuploader.ObjectName(s.Deps.ExportPrefix, state.DocumentID, export.OutputName(state.Filename, format))
	uri, err := s.Deps.Storage.Upload(ctx, s.Deps.ExportBucket, object, format.ContentType(), &buf)
	if err != nil {
		return failRun(ctx, s.Deps, state, err)
	}
	state.ExportURI = uri
	return nil
}

// Step 8: MarkSuccessStep marks the parsing run as SUCCESS.
type MarkSuccessStep struct{ Deps *Deps }

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	summary := infra.RunSummary{
		DueDate:     state.Result.DueDate,
		RecordCount: len(state.Result.Records),
		ExportURI:   state.ExportURI,
		Stats:       state.Result.Stats,
	}
	return s.Deps.Repo.MarkParsingRunSucceeded(ctx, state.ParsingRunID, summary)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewStatementIngestionPipeline creates the standard 8-step pipeline for ingesting statements.
func NewStatementIngestionPipeline(deps *Deps) *Pipeline {
	return NewPipeline(
		&FetchPDFStep{Deps: deps},
		&CreateDocumentStep{Deps: deps},
		&StartParsingRunStep{Deps: deps},
		&ExtractPagesStep{Deps: deps},
		&ParseStatementStep{Deps: deps},
		&InsertTransactionsStep{Deps: deps},
		&UploadExportStep{Deps: deps},
		&MarkSuccessStep{Deps: deps},
	)
}
