package pipeline_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	infra "github.com/dvloznov/fatura-itau/internal/infra/bigquery"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/pipeline"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

// MockDocumentRepository is a mock implementation of DocumentRepository for testing.
type MockDocumentRepository struct {
	InsertDocumentFunc          func(ctx context.Context, row *infra.DocumentRow) error
	FindDocumentByChecksumFunc  func(ctx context.Context, checksum string) (*infra.DocumentRow, error)
	StartParsingRunFunc         func(ctx context.Context, documentID string) (string, error)
	MarkParsingRunFailedFunc    func(ctx context.Context, parsingRunID string, parseErr error)
	MarkParsingRunSucceededFunc func(ctx context.Context, parsingRunID string, summary infra.RunSummary) error
	InsertTransactionsFunc      func(ctx context.Context, rows []*infra.TransactionRow) error

	mu        sync.Mutex
	Documents []*infra.DocumentRow
	Rows      []*infra.TransactionRow
	Failed    map[string]error
	Succeeded map[string]infra.RunSummary
}

func (m *MockDocumentRepository) InsertDocument(ctx context.Context, row *infra.DocumentRow) error {
	if m.InsertDocumentFunc != nil {
		return m.InsertDocumentFunc(ctx, row)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents = append(m.Documents, row)
	return nil
}

func (m *MockDocumentRepository) FindDocumentByChecksum(ctx context.Context, checksum string) (*infra.DocumentRow, error) {
	if m.FindDocumentByChecksumFunc != nil {
		return m.FindDocumentByChecksumFunc(ctx, checksum)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.Documents {
		if d.ChecksumSHA256 == checksum {
			return d, nil
		}
	}
	return nil, nil
}

func (m *MockDocumentRepository) StartParsingRun(ctx context.Context, documentID string) (string, error) {
	if m.StartParsingRunFunc != nil {
		return m.StartParsingRunFunc(ctx, documentID)
	}
	return "test-run-id", nil
}

func (m *MockDocumentRepository) MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) {
	if m.MarkParsingRunFailedFunc != nil {
		m.MarkParsingRunFailedFunc(ctx, parsingRunID, parseErr)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Failed == nil {
		m.Failed = make(map[string]error)
	}
	m.Failed[parsingRunID] = parseErr
}

func (m *MockDocumentRepository) MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, summary infra.RunSummary) error {
	if m.MarkParsingRunSucceededFunc != nil {
		return m.MarkParsingRunSucceededFunc(ctx, parsingRunID, summary)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Succeeded == nil {
		m.Succeeded = make(map[string]infra.RunSummary)
	}
	m.Succeeded[parsingRunID] = summary
	return nil
}

func (m *MockDocumentRepository) InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error {
	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, rows)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows = append(m.Rows, rows...)
	return nil
}

func (m *MockDocumentRepository) ListTransactionsByDocument(ctx context.Context, documentID string) ([]*infra.TransactionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*infra.TransactionRow
	for _, r := range m.Rows {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// MockStorageService is a mock implementation of StorageService for testing.
type MockStorageService struct {
	FetchFunc func(ctx context.Context, gcsURI string) ([]byte, error)

	mu      sync.Mutex
	Uploads map[string][]byte
}

func (m *MockStorageService) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, gcsURI)
	}
	return []byte("mock pdf data"), nil
}

func (m *MockStorageService) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Uploads == nil {
		m.Uploads = make(map[string][]byte)
	}
	uri := "gs://" + bucket + "/" + object
	m.Uploads[uri] = buf.Bytes()
	return uri, nil
}

// MockExtractor returns fixed pages, or ExtractFunc's result when set.
type MockExtractor struct {
	Pages       []pdftext.Page
	ExtractFunc func(ctx context.Context, data []byte) ([]pdftext.Page, error)
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte) ([]pdftext.Page, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, data)
	}
	return m.Pages, nil
}

var fixedNow = time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC)

func testParser() *statement.Parser {
	return statement.NewParser(
		statement.WithClock(func() time.Time { return fixedNow }),
		statement.WithLogger(zerolog.Nop()),
	)
}

func statementPage(lines string) pdftext.Page {
	return pdftext.Page{Number: 1, Width: 600, Height: 800, Text: lines}
}

func newDeps(t *testing.T, repo *MockDocumentRepository, storage *MockStorageService, ex *MockExtractor) *pipeline.Deps {
	t.Helper()
	return &pipeline.Deps{
		Repo:         repo,
		Storage:      storage,
		Extractor:    ex,
		Parser:       testParser(),
		ExportBucket: "faturas",
		ExportPrefix: "exports/",
		Now:          func() time.Time { return fixedNow },
	}
}
