package statement

import (
	"context"

	"github.com/dvloznov/fatura-itau/internal/normalize"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
)

// fallbackPass fills IOF entries still at zero from the raw page text: a
// repasse line first, then the totals difference for the last card seen.
func (r *run) fallbackPass(ctx context.Context, pages []pdftext.Page) error {
	for _, page := range pages {
		if err := r.checkContext(ctx, page.Number); err != nil {
			return err
		}

		card := Unassigned
		for _, ln := range page.Lines() {
			card = detectCard(ln, card)

			m := rxIOF.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			v, err := normalize.ParseValue(m[1])
			if err != nil {
				return err
			}
			if r.taxes.SetIfZero(card, v) {
				r.log.Debug().Int("page", page.Number).Stringer("card", card).Str("iof", v.String()).Msg("IOF from fallback line")
			}
		}

		if !r.taxes.Get(card).IsZero() {
			continue
		}
		diff, ok, err := r.totalsDifference(page.Text)
		if err != nil {
			return err
		}
		if ok && r.taxes.SetIfZero(card, diff) {
			r.log.Debug().Int("page", page.Number).Stringer("card", card).Str("iof", diff.String()).Msg("IOF from totals difference")
		}
	}
	return nil
}
