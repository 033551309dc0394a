package statement

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/fatura-itau/internal/pdftext"
)

const pageWidth = 600.0

// page builds a single-column page: every word sits in the left half.
func page(number int, lines ...string) pdftext.Page {
	return twoColumn(number, lines, nil)
}

// twoColumn builds a page whose rows pair left[i] with right[i]. Text holds
// both halves of each row, Words places the right half past the midpoint.
func twoColumn(number int, left, right []string) pdftext.Page {
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	p := pdftext.Page{Number: number, Width: pageWidth, Height: 800}

	var rows []string
	for i := 0; i < n; i++ {
		var parts []string
		if i < len(left) && left[i] != "" {
			parts = append(parts, left[i])
			p.Words = append(p.Words, words(left[i], 20, float64(i))...)
		}
		if i < len(right) && right[i] != "" {
			parts = append(parts, right[i])
			p.Words = append(p.Words, words(right[i], pageWidth/2+10, float64(i))...)
		}
		rows = append(rows, strings.Join(parts, " "))
	}
	p.Text = strings.Join(rows, "\n")
	return p
}

func words(s string, x, row float64) []pdftext.Word {
	var out []pdftext.Word
	for _, f := range strings.Fields(s) {
		w := float64(len(f)) * 4
		out = append(out, pdftext.Word{Text: f, X0: x, X1: x + w, Top: row * 10, Bottom: row*10 + 8})
		x += w + 3
	}
	return out
}

var fixedNow = time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC)

func newTestParser(t *testing.T, opts ...Option) *Parser {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(zerolog.Nop()),
	}
	return NewParser(append(base, opts...)...)
}
