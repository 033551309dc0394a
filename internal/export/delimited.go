package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM makes spreadsheet applications detect the encoding.
const utf8BOM = "\ufeff"

// WriteDelimited writes a BOM-prefixed table with fields separated by comma.
func WriteDelimited(w io.Writer, comma rune, docs []Document, opts Options) error {
	if !opts.OmitBOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("WriteDelimited: writing BOM: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(header(opts)); err != nil {
		return fmt.Errorf("WriteDelimited: writing header: %w", err)
	}
	for _, d := range docs {
		for _, r := range d.Records {
			rec := []string{r.DateString(), r.Establishment, r.Value}
			if opts.WithSource {
				rec = append(rec, d.Source)
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("WriteDelimited: writing row: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteDelimited: flushing: %w", err)
	}
	return nil
}
