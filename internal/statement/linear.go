package statement

import (
	"context"
	"strings"

	"github.com/dvloznov/fatura-itau/internal/blocks"
	"github.com/dvloznov/fatura-itau/internal/normalize"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
)

// section is the line-walk state. Installment previews and advisories are
// excised before the walk, so only the international section needs a state.
type section int

const (
	sectionNormal section = iota
	sectionInternational
)

func (s section) String() string {
	if s == sectionInternational {
		return "international"
	}
	return "normal"
}

// detectCard returns the card named on ln, or current when there is none.
func detectCard(ln string, current CardKey) CardKey {
	if m := rxCardHeader.FindStringSubmatch(ln); m != nil {
		return CardKeyFor(m[1])
	}
	if m := rxCardFinal.FindStringSubmatch(ln); m != nil {
		return CardKeyFor(m[1])
	}
	return current
}

// linearPass reads each page line by line. Card and section reset per page;
// the due date is kept from its first occurrence in the document.
func (r *run) linearPass(ctx context.Context, pages []pdftext.Page) error {
	for _, page := range pages {
		if err := r.checkContext(ctx, page.Number); err != nil {
			return err
		}

		text := blocks.ExciseAll(page.Text, previewLines, advisoryLines)
		card := Unassigned
		state := sectionNormal

		for _, ln := range strings.Split(text, "\n") {
			if !r.hasDue {
				if m := rxDueDate.FindStringSubmatch(ln); m != nil {
					r.setDue(m[1])
				}
			}

			if next := detectCard(ln, card); next != card {
				r.log.Debug().Int("page", page.Number).Stringer("card", next).Msg("Card context")
				card = next
			}

			if rxInternationalTitle.MatchString(ln) {
				state = sectionInternational
				if card.Assigned() {
					r.taxes.Ensure(card)
				}
				r.taxes.Ensure(Unassigned)
				continue
			}

			if state == sectionInternational {
				if lineEndsSection(ln) {
					state = sectionNormal
					continue
				}
				if m := rxIOF.FindStringSubmatch(ln); m != nil {
					v, err := normalize.ParseValue(m[1])
					if err != nil {
						return err
					}
					r.taxes.Add(card, v)
					continue
				}
				if isInternationalNoise(ln) {
					continue
				}
			}

			if m := rxTransactionLine.FindStringSubmatch(ln); m != nil {
				if err := r.addCandidate(m, PassLinear, page.Number, 1, card); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
