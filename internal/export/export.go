// Package export writes parsed statements as CSV, TSV or XLSX.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/fatura-itau/internal/domain"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Column headers.
const (
	ColumnDate          = "Data"
	ColumnEstablishment = "Estabelecimento"
	ColumnValue         = "Valor (R$)"
	ColumnSource        = "Arquivo_Origem"
)

// ParseFormat accepts "csv", "tsv" or "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatTSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", s)
	}
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Document is the table extracted from one source file.
type Document struct {
	Source  string
	Records []domain.CardTransaction
}

// Options controls the written columns.
type Options struct {
	// WithSource appends the Arquivo_Origem column, used when several
	// documents are merged into one file.
	WithSource bool
	// OmitBOM drops the byte-order mark, for terminal output.
	OmitBOM bool
}

// Write renders docs in format f.
func Write(w io.Writer, f Format, docs []Document, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteDelimited(w, ',', docs, opts)
	case FormatTSV:
		return WriteDelimited(w, '\t', docs, opts)
	case FormatXLSX:
		return WriteXLSX(w, docs, opts)
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}

func header(opts Options) []string {
	h := []string{ColumnDate, ColumnEstablishment, ColumnValue}
	if opts.WithSource {
		h = append(h, ColumnSource)
	}
	return h
}

// Total sums every record of docs.
func Total(docs ...Document) decimal.Decimal {
	total := decimal.Zero
	for _, d := range docs {
		total = total.Add(domain.SumAmounts(d.Records))
	}
	return total
}

// OutputName derives the export file name from the source PDF path:
// "fatura.pdf" becomes "fatura.csv".
func OutputName(source string, f Format) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "fatura"
	}
	return stem + "." + string(f)
}
