package statement

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/fatura-itau/internal/domain"
	"github.com/dvloznov/fatura-itau/internal/normalize"
)

const iofLabel = "Repasse de IOF (transações internacionais)"

// taxCandidates turns positive IOF entries into rows dated today.
func (r *run) taxCandidates() []Candidate {
	today := civil.DateOf(r.now())
	var out []Candidate
	for _, k := range r.taxes.Keys() {
		v := r.taxes.Get(k)
		if !v.IsPositive() {
			continue
		}
		label := iofLabel
		if k.Assigned() {
			label += " – final " + k.Digits()
		}
		out = append(out, Candidate{
			Date:          today,
			Establishment: label,
			Value:         normalize.FormatValue(v),
			Pass:          PassLinear,
			Card:          k.Digits(),
		})
	}
	r.stats.TaxRows = len(out)
	return out
}

type row struct {
	Candidate
	display string
	amount  decimal.Decimal
	key     string
}

// reconcile merges all candidates into the final table. Payments and
// installment-preview entries are dropped; among rows sharing a key the one
// from the highest pass survives, ties going to the last in sort order.
func (r *run) reconcile() ([]domain.CardTransaction, error) {
	all := append(append([]Candidate(nil), r.candidates...), r.taxCandidates()...)

	rows := make([]row, 0, len(all))
	for _, c := range all {
		if isPayment(normalize.Fold(c.Establishment)) {
			r.stats.Payments++
			continue
		}
		display, amount, err := normalize.Canonical(c.Value)
		if err != nil {
			return nil, err
		}
		key := normalize.CompositeKey(domain.FormatDate(c.Date), c.Establishment, amount)
		if _, stop := r.stop[key]; stop {
			r.stats.Stoplisted++
			continue
		}
		rows = append(rows, row{Candidate: c, display: display, amount: amount, key: key})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Establishment != b.Establishment {
			return a.Establishment < b.Establishment
		}
		if c := a.amount.Cmp(b.amount); c != 0 {
			return c < 0
		}
		return a.Pass < b.Pass
	})

	winner := make(map[string]int, len(rows))
	for i, rw := range rows {
		if j, ok := winner[rw.key]; ok && rows[j].Pass > rw.Pass {
			continue
		}
		winner[rw.key] = i
	}

	out := make([]domain.CardTransaction, 0, len(winner))
	for i, rw := range rows {
		if winner[rw.key] != i {
			continue
		}
		out = append(out, domain.CardTransaction{
			Date:          rw.Date,
			Establishment: rw.Establishment,
			Value:         rw.display,
			Amount:        rw.amount,
			Card:          rw.Card,
			Pass:          int(rw.Pass),
			Page:          rw.Page,
		})
	}
	r.stats.Duplicates = len(rows) - len(out)
	return out, nil
}
