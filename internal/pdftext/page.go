// Package pdftext turns statement PDFs into per-page plain text and
// positioned words.
package pdftext

import "strings"

// Word is a run of glyphs on one line with no gap wider than a character space.
// Coordinates are in PDF points; Top and Bottom are measured from the top edge.
type Word struct {
	Text   string
	X0, X1 float64
	Top    float64
	Bottom float64
}

// Page is the extracted view of one PDF page.
type Page struct {
	Number int
	Width  float64
	Height float64
	// Text holds one line per visual row, words separated by single spaces.
	Text  string
	Words []Word
}

// Lines splits the page text into rows.
func (p Page) Lines() []string {
	if p.Text == "" {
		return nil
	}
	return strings.Split(p.Text, "\n")
}

// WordsFrom returns the words whose left edge is at or right of x, in reading order.
func (p Page) WordsFrom(x float64) []Word {
	var out []Word
	for _, w := range p.Words {
		if w.X0 >= x {
			out = append(out, w)
		}
	}
	return out
}

// JoinWords flattens words into one space-separated string.
func JoinWords(words []Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}
