package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dvloznov/fatura-itau/internal/logger"
)

// ErrEncrypted is returned for password-protected PDFs opened without the right password.
var ErrEncrypted = errors.New("pdftext: document is encrypted")

// Letter size, used when a page carries no MediaBox anywhere in its tree.
const (
	defaultWidth  = 612.0
	defaultHeight = 792.0
)

// Extractor reads PDF bytes into pages.
type Extractor struct {
	// Password unlocks encrypted statements; empty means none.
	Password string
}

// NewExtractor returns an Extractor for documents protected by password, which may be empty.
func NewExtractor(password string) *Extractor {
	return &Extractor{Password: password}
}

// ExtractFile reads the PDF at path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ExtractFile: reading %s: %w", path, err)
	}
	return e.Extract(ctx, data)
}

// Extract parses every page of the PDF held in data.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]Page, error) {
	log := logger.FromContext(ctx)

	r, err := openReader(data)
	if errors.Is(err, pdf.ErrInvalidPassword) {
		if e.Password == "" {
			return nil, ErrEncrypted
		}
		log.Debug().Msg("Decrypting password-protected statement")
		plain, derr := Decrypt(data, e.Password)
		if derr != nil {
			return nil, derr
		}
		data = plain
		r, err = openReader(data)
	}
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, ErrEncrypted
		}
		return nil, fmt.Errorf("Extract: opening pdf: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		glyphs, err := pageGlyphs(p)
		if err != nil {
			return nil, fmt.Errorf("Extract: page %d: %w", i, err)
		}
		width, height := pageSize(p)
		pages = append(pages, layoutPage(i, width, height, glyphs))
	}

	log.Debug().Int("pages", len(pages)).Int("bytes", len(data)).Msg("Extracted PDF text")
	return pages, nil
}

func openReader(data []byte) (*pdf.Reader, error) {
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageGlyphs reads the content stream. The reader panics on malformed
// streams, so the panic is turned into an error.
func pageGlyphs(p pdf.Page) (glyphs []pdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return p.Content().Text, nil
}

// pageSize reads the MediaBox, walking up the page tree for inherited boxes.
func pageSize(p pdf.Page) (float64, float64) {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() < 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return defaultWidth, defaultHeight
}

// Decrypt removes password protection so the text layer can be read.
func Decrypt(data []byte, password string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	return out.Bytes(), nil
}
