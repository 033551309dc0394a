package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/pipeline"
)

func TestConverter_ConvertFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "marco.pdf")
	require.NoError(t, os.WriteFile(good, []byte("%PDF"), 0o600))
	missing := filepath.Join(dir, "missing.pdf")

	c := &pipeline.Converter{
		Extractor: &MockExtractor{Pages: []pdftext.Page{statementPage(sampleStatement)}},
		Parser:    testParser(),
	}

	convs, failed := c.ConvertFiles(context.Background(), []string{good, missing})
	require.Len(t, convs, 1)
	assert.Contains(t, failed, missing)

	doc := convs[0].Document
	assert.Equal(t, "marco.pdf", doc.Source)
	assert.Len(t, doc.Records, 2)
	assert.Equal(t, "1123.45", export.Total(pipeline.Documents(convs)...).StringFixed(2))
}
