package pdftext

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// lineNudge is the largest baseline difference still treated as the same row.
const lineNudge = 1.5

// layoutPage groups glyphs into rows and words. Rows run top to bottom and
// words within a row left to right.
func layoutPage(number int, width, height float64, glyphs []pdf.Text) Page {
	page := Page{Number: number, Width: width, Height: height}
	if len(glyphs) == 0 {
		return page
	}

	chars := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		chars = append(chars, explode(g)...)
	}

	sort.Sort(pdf.TextVertical(chars))
	old := math.Inf(-1)
	for i, c := range chars {
		if c.Y != old && math.Abs(old-c.Y) < lineNudge {
			chars[i].Y = old
		} else {
			old = c.Y
		}
	}
	sort.Stable(pdf.TextVertical(chars))

	var lines []string
	for i := 0; i < len(chars); {
		j := i + 1
		for j < len(chars) && chars[j].Y == chars[i].Y {
			j++
		}
		words := splitWords(chars[i:j], height)
		if len(words) > 0 {
			page.Words = append(page.Words, words...)
			lines = append(lines, JoinWords(words))
		}
		i = j
	}
	page.Text = strings.Join(lines, "\n")
	return page
}

// splitWords cuts one row of glyphs, already sorted by X, at whitespace
// glyphs and at gaps wider than a sixth of the font size.
func splitWords(row []pdf.Text, height float64) []Word {
	var (
		words []Word
		cur   strings.Builder
		w     Word
	)
	flush := func() {
		if cur.Len() > 0 {
			w.Text = cur.String()
			words = append(words, w)
		}
		cur.Reset()
	}

	for _, c := range row {
		if strings.TrimSpace(c.S) == "" {
			flush()
			continue
		}
		charSpace := c.FontSize / 6
		if cur.Len() > 0 && c.X > w.X1+charSpace {
			flush()
		}
		if cur.Len() == 0 {
			w = Word{
				X0:     c.X,
				Top:    height - c.Y - c.FontSize,
				Bottom: height - c.Y,
			}
		}
		cur.WriteString(c.S)
		w.X1 = c.X + c.W
	}
	flush()
	return words
}

// explode splits a text run that carries embedded spaces into pieces so the
// spaces can separate words. Piece positions are interpolated by rune count.
func explode(t pdf.Text) []pdf.Text {
	runes := []rune(t.S)
	if len(runes) < 2 || !strings.ContainsAny(t.S, " \t") {
		return []pdf.Text{t}
	}
	step := t.W / float64(len(runes))
	var (
		out   []pdf.Text
		start int
	)
	emit := func(end int) {
		if end > start {
			p := t
			p.S = string(runes[start:end])
			p.X = t.X + float64(start)*step
			p.W = float64(end-start) * step
			out = append(out, p)
		}
		start = end
	}
	for i, r := range runes {
		if r == ' ' || r == '\t' {
			emit(i)
			emit(i + 1)
		}
	}
	emit(len(runes))
	return out
}
