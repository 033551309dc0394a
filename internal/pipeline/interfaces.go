package pipeline

import (
	"context"
	"io"

	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

// StorageService is an interface for storage operations.
type StorageService interface {
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error)
}

// PageExtractor turns PDF bytes into positioned page text.
type PageExtractor interface {
	Extract(ctx context.Context, data []byte) ([]pdftext.Page, error)
}

// StatementParser turns extracted pages into the reconciled transaction table.
type StatementParser interface {
	Parse(ctx context.Context, pages []pdftext.Page) (*statement.Result, error)
}

var (
	_ PageExtractor   = (*pdftext.Extractor)(nil)
	_ StatementParser = (*statement.Parser)(nil)
)
