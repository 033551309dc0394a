// Package blocks removes or extracts marker-delimited regions of statement text.
//
// A Region begins at a match of Start and ends at the nearest match of any of
// Ends that follows it. The end marker itself is not part of the region, so a
// removal keeps it and it can terminate or open the next section.
package blocks

import "regexp"

// Region describes one kind of excludable block.
type Region struct {
	Name  string
	Start *regexp.Regexp
	Ends  []*regexp.Regexp
}

// NewRegion compiles the start and end patterns, panicking on invalid input.
// Intended for package-level region tables.
func NewRegion(name, start string, ends ...string) Region {
	r := Region{Name: name, Start: regexp.MustCompile(start)}
	for _, e := range ends {
		r.Ends = append(r.Ends, regexp.MustCompile(e))
	}
	return r
}

// WithEnds returns a copy of r terminated by the given patterns instead.
func (r Region) WithEnds(ends ...*regexp.Regexp) Region {
	r.Ends = ends
	return r
}

// nearestEnd returns the offset of the closest end marker in text[anchor:]
// that starts at or after from, or -1 when none matches. Anchored end
// patterns see text[anchor:] as the start of input.
func (r Region) nearestEnd(text string, anchor, from int) int {
	best := -1
	for _, rx := range r.Ends {
		for _, loc := range rx.FindAllStringIndex(text[anchor:], -1) {
			pos := anchor + loc[0]
			if pos < from {
				continue
			}
			if best < 0 || pos < best {
				best = pos
			}
			break
		}
	}
	return best
}

// Excise removes every occurrence of r from text. A block without an end
// marker runs to the end of the text.
func Excise(text string, r Region) string {
	for {
		loc := r.Start.FindStringIndex(text)
		if loc == nil || loc[0] == loc[1] {
			return text
		}
		end := r.nearestEnd(text, loc[0], loc[1])
		if end < 0 {
			return text[:loc[0]]
		}
		text = text[:loc[0]] + text[end:]
	}
}

// ExciseAll applies Excise for each region in order.
func ExciseAll(text string, regions ...Region) string {
	for _, r := range regions {
		text = Excise(text, r)
	}
	return text
}

// Extract returns the body of every occurrence of r: the text after the start
// marker up to the nearest end marker, or to the end of the text.
func Extract(text string, r Region) []string {
	var out []string
	cursor := 0
	for _, loc := range r.Start.FindAllStringIndex(text, -1) {
		if loc[0] < cursor || loc[0] == loc[1] {
			continue
		}
		end := r.nearestEnd(text, loc[1], loc[1])
		if end < 0 {
			out = append(out, text[loc[1]:])
			break
		}
		out = append(out, text[loc[1]:end])
		cursor = end
	}
	return out
}
