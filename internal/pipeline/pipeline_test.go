package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/pipeline"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

const sampleStatement = "Vencimento: 20/03/2025\n" +
	"10/03 SUPERMERCADO ABC 123,45\n" +
	"12/03 FARMACIA XYZ 1.000,00\n" +
	"15/03 PAGAMENTO EFETUADO 500,00"

func TestIngestStatementFromGCS(t *testing.T) {
	repo := &MockDocumentRepository{}
	storage := &MockStorageService{}
	ex := &MockExtractor{Pages: []pdftext.Page{statementPage(sampleStatement)}}

	state, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(),
		"gs://faturas/statements/marco.pdf", newDeps(t, repo, storage, ex))
	require.NoError(t, err)

	require.Len(t, repo.Documents, 1)
	doc := repo.Documents[0]
	assert.Equal(t, "marco.pdf", doc.OriginalFilename)
	assert.Equal(t, pipeline.DefaultSourceSystem, doc.SourceSystem)
	assert.Len(t, doc.ChecksumSHA256, 64)

	require.Len(t, repo.Rows, 2, "payment line is dropped")
	assert.Equal(t, "SUPERMERCADO ABC", repo.Rows[0].Establishment)
	assert.Equal(t, "123,45", repo.Rows[0].ValueText)
	assert.Equal(t, "1000", repo.Rows[1].Amount.FloatString(0))
	for _, r := range repo.Rows {
		assert.Equal(t, state.DocumentID, r.DocumentID)
		assert.Equal(t, "test-run-id", r.ParsingRunID)
	}

	wantURI := "gs://faturas/exports/" + state.DocumentID + "/marco.csv"
	assert.Equal(t, wantURI, state.ExportURI)
	csv := string(storage.Uploads[wantURI])
	assert.True(t, strings.HasPrefix(csv, "\ufeff"))
	assert.Contains(t, csv, "SUPERMERCADO ABC")

	summary, ok := repo.Succeeded["test-run-id"]
	require.True(t, ok)
	assert.Equal(t, 2, summary.RecordCount)
	assert.Equal(t, wantURI, summary.ExportURI)
	assert.Equal(t, "2025-03-20", summary.DueDate.String())
	assert.Empty(t, repo.Failed)
}

func TestIngestStatementFromGCS_ReusesDocumentByChecksum(t *testing.T) {
	repo := &MockDocumentRepository{}
	deps := newDeps(t, repo, &MockStorageService{}, &MockExtractor{Pages: []pdftext.Page{statementPage(sampleStatement)}})

	first, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://faturas/a.pdf", deps)
	require.NoError(t, err)
	second, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://faturas/copy-of-a.pdf", deps)
	require.NoError(t, err)

	assert.Len(t, repo.Documents, 1)
	assert.Equal(t, first.DocumentID, second.DocumentID)
}

func TestIngestStatementFromGCS_Failures(t *testing.T) {
	tests := []struct {
		name       string
		extract    func(ctx context.Context, data []byte) ([]pdftext.Page, error)
		fetchErr   error
		wantIs     error
		wantFailed bool
	}{
		{
			name:     "fetch fails before any run exists",
			fetchErr: errors.New("object not found"),
		},
		{
			name: "encrypted pdf",
			extract: func(context.Context, []byte) ([]pdftext.Page, error) {
				return nil, pdftext.ErrEncrypted
			},
			wantIs:     pdftext.ErrEncrypted,
			wantFailed: true,
		},
		{
			name: "no due date",
			extract: func(context.Context, []byte) ([]pdftext.Page, error) {
				return []pdftext.Page{statementPage("10/03 SUPERMERCADO ABC 123,45")}, nil
			},
			wantIs:     statement.ErrNoDueDate,
			wantFailed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockDocumentRepository{}
			storage := &MockStorageService{}
			if tt.fetchErr != nil {
				storage.FetchFunc = func(context.Context, string) ([]byte, error) { return nil, tt.fetchErr }
			}
			ex := &MockExtractor{ExtractFunc: tt.extract}

			_, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://faturas/x.pdf", newDeps(t, repo, storage, ex))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "pipeline step")
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}

			_, failed := repo.Failed["test-run-id"]
			assert.Equal(t, tt.wantFailed, failed)
			assert.Empty(t, repo.Succeeded)
			assert.Empty(t, repo.Rows)
		})
	}
}

func TestIngestStatementFromGCS_NoExportBucket(t *testing.T) {
	repo := &MockDocumentRepository{}
	storage := &MockStorageService{}
	deps := newDeps(t, repo, storage, &MockExtractor{Pages: []pdftext.Page{statementPage(sampleStatement)}})
	deps.ExportBucket = ""

	state, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://faturas/a.pdf", deps)
	require.NoError(t, err)
	assert.Empty(t, state.ExportURI)
	assert.Empty(t, storage.Uploads)
}

func TestIngestStatementFromGCS_MissingDeps(t *testing.T) {
	_, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://faturas/a.pdf", &pipeline.Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository is required")
	assert.Contains(t, err.Error(), "parser is required")
}
