package statement

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/fatura-itau/internal/blocks"
	"github.com/dvloznov/fatura-itau/internal/domain"
	"github.com/dvloznov/fatura-itau/internal/normalize"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
)

// columnPass reads the right half of every page as one flattened string.
func (r *run) columnPass(ctx context.Context, pages []pdftext.Page) error {
	for _, page := range pages {
		if err := r.checkContext(ctx, page.Number); err != nil {
			return err
		}

		text := pdftext.JoinWords(page.WordsFrom(page.Width / 2))
		if text == "" {
			continue
		}
		text = rxAdvisoryPreamble.ReplaceAllString(text, " ")

		if err := r.captureStopKeys(text, page.Number); err != nil {
			return err
		}
		text = blocks.ExciseAll(text, advisoryInline, previewInline, advisoryLines)

		card := Unassigned
		if m := rxCardFinal.FindStringSubmatch(text); m != nil {
			card = CardKeyFor(m[1])
		}

		tax, ok, err := r.columnTax(text)
		if err != nil {
			return err
		}
		if ok && r.taxes.SetIfZero(card, tax) {
			r.log.Debug().Int("page", page.Number).Stringer("card", card).Str("iof", tax.String()).Msg("IOF from column text")
		}

		// Tax figures live inside the international block, so it goes last.
		text = blocks.Excise(text, internationalLines)

		for _, m := range rxTransaction.FindAllStringSubmatch(text, -1) {
			if rxTrailingFragment.MatchString(strings.TrimSpace(m[2])) {
				continue
			}
			if err := r.addCandidate(m, PassColumn, page.Number, 2, card); err != nil {
				return err
			}
		}
	}
	return nil
}

// captureStopKeys records the key of every entry listed in an installment
// preview block so reconciliation can drop it wherever it reappears.
func (r *run) captureStopKeys(text string, page int) error {
	for _, body := range blocks.Extract(text, previewInline) {
		for _, m := range rxTransaction.FindAllStringSubmatch(body, -1) {
			d, ok, err := r.resolve(m[1], page)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			v, err := normalize.ParseValue(m[3])
			if err != nil {
				return err
			}
			key := normalize.CompositeKey(domain.FormatDate(d), strings.TrimSpace(m[2]), v)
			if _, seen := r.stop[key]; !seen {
				r.stop[key] = struct{}{}
				r.stats.StopKeys++
			}
		}
	}
	return nil
}

// columnTax finds the IOF repasse directly or from the totals difference.
func (r *run) columnTax(text string) (decimal.Decimal, bool, error) {
	if m := rxIOF.FindStringSubmatch(text); m != nil {
		v, err := normalize.ParseValue(m[1])
		if err != nil {
			return decimal.Zero, false, err
		}
		return v, true, nil
	}
	return r.totalsDifference(text)
}
