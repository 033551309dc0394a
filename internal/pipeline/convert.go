package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/logger"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

// Converter parses statements without touching the cloud.
type Converter struct {
	Extractor PageExtractor
	Parser    StatementParser
}

// Conversion is the table of one converted file.
type Conversion struct {
	Document export.Document
	Result   *statement.Result
}

// Convert parses the PDF bytes; source names the file in logs and merged exports.
func (c *Converter) Convert(ctx context.Context, source string, data []byte) (*Conversion, error) {
	ctx = logger.WithDocument(ctx, "", source)

	pages, err := c.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", source, err)
	}
	res, err := c.Parser.Parse(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Int("pages", len(pages)).
		Int("records", len(res.Records)).
		Msg("Converted statement")

	return &Conversion{
		Document: export.Document{Source: source, Records: res.Records},
		Result:   res,
	}, nil
}

// ConvertFile reads and converts a local PDF.
func (c *Converter) ConvertFile(ctx context.Context, path string) (*Conversion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c.Convert(ctx, filepath.Base(path), data)
}

// ConvertFiles converts every path. A failing file is logged and reported
// in the returned map; the others still convert.
func (c *Converter) ConvertFiles(ctx context.Context, paths []string) ([]*Conversion, map[string]error) {
	log := logger.FromContext(ctx)

	var out []*Conversion
	failed := make(map[string]error)
	for _, p := range paths {
		conv, err := c.ConvertFile(ctx, p)
		if err != nil {
			log.Error().Err(err).Str("file", p).Msg("Conversion failed")
			failed[p] = err
			continue
		}
		out = append(out, conv)
	}
	return out, failed
}

// Documents returns the export documents of convs, in order.
func Documents(convs []*Conversion) []export.Document {
	docs := make([]export.Document, len(convs))
	for i, c := range convs {
		docs[i] = c.Document
	}
	return docs
}
