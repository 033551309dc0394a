// Package statement extracts the transaction table of an Itaú credit-card
// statement.
//
// Three passes run over the same pages. The linear pass reads each page line
// by line. The column pass reads the right half of the page as one flattened
// string, where two-column layouts hide a second list of purchases, and
// collects the installment previews that must never be reported. The fallback
// pass recovers IOF repasse amounts still missing. Results are merged and
// deduplicated only after all passes ran.
package statement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/fatura-itau/internal/domain"
	"github.com/dvloznov/fatura-itau/internal/logger"
	"github.com/dvloznov/fatura-itau/internal/normalize"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
)

// DefaultIOFDiffMax bounds, in reais, the difference between the line-item
// and transaction totals accepted as an IOF amount.
const DefaultIOFDiffMax = 50

// Pass numbers the extraction strategy that produced a candidate.
type Pass int

const (
	PassLinear   Pass = 1
	PassColumn   Pass = 2
	PassFallback Pass = 3
)

// Candidate is one transaction line seen by a pass, before reconciliation.
type Candidate struct {
	Date          civil.Date
	Establishment string
	Value         string
	Pass          Pass
	Page          int
	Column        int
	Card          string
}

// Stats counts what each stage contributed or dropped.
type Stats struct {
	Linear     int `json:"linear"`
	Column     int `json:"column"`
	TaxRows    int `json:"tax_rows"`
	StopKeys   int `json:"stop_keys"`
	Stoplisted int `json:"stoplisted"`
	Payments   int `json:"payments"`
	Duplicates int `json:"duplicates"`
}

// Result is the outcome of parsing one statement.
type Result struct {
	Records []domain.CardTransaction
	DueDate civil.Date
	// Taxes holds IOF repasse per card after deduplication, "" for unassigned.
	Taxes map[string]decimal.Decimal
	Stats Stats
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the source of "today", used to date IOF rows.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithIOFDiffMax overrides DefaultIOFDiffMax.
func WithIOFDiffMax(max decimal.Decimal) Option {
	return func(p *Parser) { p.iofDiffMax = max }
}

// WithLogger sets the logger. Without it the logger in the context is used.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Parser) { p.log = &log }
}

// Parser is safe for concurrent use; every Parse call owns its own state.
type Parser struct {
	now        func() time.Time
	iofDiffMax decimal.Decimal
	log        *zerolog.Logger
}

// NewParser returns a Parser with the given options applied.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		now:        time.Now,
		iofDiffMax: decimal.NewFromInt(DefaultIOFDiffMax),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run is the state of one Parse call.
type run struct {
	*Parser
	log zerolog.Logger

	due    civil.Date
	hasDue bool

	candidates []Candidate
	taxes      *TaxLedger
	stop       map[string]struct{}
	stats      Stats
}

// Parse runs the three passes over pages and returns the reconciled table.
func (p *Parser) Parse(ctx context.Context, pages []pdftext.Page) (*Result, error) {
	r := &run{
		Parser: p,
		taxes:  newTaxLedger(),
		stop:   make(map[string]struct{}),
	}
	if p.log != nil {
		r.log = *p.log
	} else {
		r.log = logger.FromContext(ctx)
	}

	if err := r.linearPass(ctx, pages); err != nil {
		return nil, fmt.Errorf("linear pass: %w", err)
	}
	if err := r.columnPass(ctx, pages); err != nil {
		return nil, fmt.Errorf("column pass: %w", err)
	}
	if err := r.fallbackPass(ctx, pages); err != nil {
		return nil, fmt.Errorf("fallback pass: %w", err)
	}

	if r.taxes.Dedupe() {
		r.log.Debug().Msg("Dropped unassigned IOF entry already attributed to a card")
	}

	records, err := r.reconcile()
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	r.log.Debug().
		Int("pages", len(pages)).
		Int("records", len(records)).
		Interface("stats", r.stats).
		Msg("Parsed statement")

	return &Result{
		Records: records,
		DueDate: r.due,
		Taxes:   r.taxes.Snapshot(),
		Stats:   r.stats,
	}, nil
}

// setDue records the first due date seen in the document.
func (r *run) setDue(s string) {
	if r.hasDue {
		return
	}
	d, err := ParseDueDate(s)
	if err != nil {
		r.log.Debug().Str("due_date", s).Msg("Ignoring unparseable due date")
		return
	}
	r.due, r.hasDue = d, true
	r.log.Debug().Str("due_date", domain.FormatDate(d)).Msg("Found due date")
}

// resolve turns a DD/MM fragment into a date. ok is false for fragments that
// are no calendar day.
func (r *run) resolve(fragment string, page int) (civil.Date, bool, error) {
	if !r.hasDue {
		return civil.Date{}, false, fmt.Errorf("page %d: fragment %q: %w", page, fragment, ErrNoDueDate)
	}
	d, err := ResolveDate(fragment, r.due)
	if err != nil {
		r.log.Debug().Int("page", page).Str("fragment", fragment).Msg("Skipping non-date fragment")
		return civil.Date{}, false, nil
	}
	return d, true, nil
}

// addCandidate records one transaction-pattern match.
func (r *run) addCandidate(m []string, pass Pass, page, column int, card CardKey) error {
	d, ok, err := r.resolve(m[1], page)
	if err != nil || !ok {
		return err
	}
	r.candidates = append(r.candidates, Candidate{
		Date:          d,
		Establishment: strings.TrimSpace(m[2]),
		Value:         m[3],
		Pass:          pass,
		Page:          page,
		Column:        column,
		Card:          card.Digits(),
	})
	switch pass {
	case PassLinear:
		r.stats.Linear++
	case PassColumn:
		r.stats.Column++
	}
	return nil
}

// totalsDifference derives IOF from the international totals: line items
// minus transactions, trusted only within [0, iofDiffMax].
func (r *run) totalsDifference(text string) (decimal.Decimal, bool, error) {
	mt := rxTotalTransactions.FindStringSubmatch(text)
	ml := rxTotalItems.FindStringSubmatch(text)
	if mt == nil || ml == nil {
		return decimal.Zero, false, nil
	}
	transactions, err := normalize.ParseValue(mt[1])
	if err != nil {
		return decimal.Zero, false, err
	}
	items, err := normalize.ParseValue(ml[1])
	if err != nil {
		return decimal.Zero, false, err
	}
	diff := items.Sub(transactions).Round(2)
	if diff.IsNegative() || diff.GreaterThan(r.iofDiffMax) {
		r.log.Debug().Str("difference", diff.String()).Msg("Discarding out-of-range totals difference")
		return decimal.Zero, false, nil
	}
	return diff, true, nil
}

func (r *run) checkContext(ctx context.Context, page int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("page %d: %w", page, err)
	}
	return nil
}
