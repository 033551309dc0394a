package statement

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// CardKey identifies the card an IOF amount belongs to. The zero value is
// Unassigned, used when no "(final NNNN)" header was seen.
type CardKey struct {
	last4    uint16
	assigned bool
}

// Unassigned is the key for tax found outside any card context.
var Unassigned = CardKey{}

// CardKeyFor builds the key for the four trailing card digits. Anything that
// is not four digits maps to Unassigned.
func CardKeyFor(digits string) CardKey {
	if len(digits) != 4 {
		return Unassigned
	}
	n, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return Unassigned
	}
	return CardKey{last4: uint16(n), assigned: true}
}

// Assigned reports whether k names a card.
func (k CardKey) Assigned() bool { return k.assigned }

// Digits returns the four card digits, or "" for Unassigned.
func (k CardKey) Digits() string {
	if !k.assigned {
		return ""
	}
	return fmt.Sprintf("%04d", k.last4)
}

func (k CardKey) String() string {
	if !k.assigned {
		return "unassigned"
	}
	return k.Digits()
}

var cent = decimal.New(1, -2)

// TaxLedger accumulates IOF repasse amounts per card across passes.
type TaxLedger struct {
	entries map[CardKey]decimal.Decimal
}

func newTaxLedger() *TaxLedger {
	return &TaxLedger{entries: make(map[CardKey]decimal.Decimal)}
}

// Ensure creates a zero entry for k if none exists.
func (l *TaxLedger) Ensure(k CardKey) {
	if _, ok := l.entries[k]; !ok {
		l.entries[k] = decimal.Zero
	}
}

// Add accumulates v into k.
func (l *TaxLedger) Add(k CardKey, v decimal.Decimal) {
	l.entries[k] = l.entries[k].Add(v)
}

// SetIfZero stores v under k unless k already holds a nonzero amount.
// It reports whether the value was stored.
func (l *TaxLedger) SetIfZero(k CardKey, v decimal.Decimal) bool {
	if !l.entries[k].IsZero() {
		return false
	}
	l.entries[k] = v
	return true
}

// Get returns the amount under k, zero when absent.
func (l *TaxLedger) Get(k CardKey) decimal.Decimal {
	return l.entries[k]
}

// Keys returns card keys in digit order with Unassigned last.
func (l *TaxLedger) Keys() []CardKey {
	keys := make([]CardKey, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].assigned != keys[j].assigned {
			return keys[i].assigned
		}
		return keys[i].last4 < keys[j].last4
	})
	return keys
}

// Dedupe rounds every entry to cents and drops the Unassigned entry when a
// positive per-card entry makes it redundant: it equals one card's amount or
// the sum of all of them within a cent, or it is itself at most a cent.
// It reports whether the Unassigned entry was dropped.
func (l *TaxLedger) Dedupe() bool {
	for k, v := range l.entries {
		l.entries[k] = v.Round(2)
	}

	general, ok := l.entries[Unassigned]
	if !ok {
		return false
	}

	var (
		specific []decimal.Decimal
		sum      = decimal.Zero
	)
	for k, v := range l.entries {
		if k.assigned && v.IsPositive() {
			specific = append(specific, v)
			sum = sum.Add(v)
		}
	}
	if len(specific) == 0 {
		return false
	}

	redundant := general.LessThanOrEqual(cent) || within(general, sum.Round(2))
	for _, v := range specific {
		if within(general, v) {
			redundant = true
		}
	}
	if redundant {
		delete(l.entries, Unassigned)
	}
	return redundant
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(cent)
}

// Snapshot returns the entries keyed by card digits, "" for Unassigned.
func (l *TaxLedger) Snapshot() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.entries))
	for k, v := range l.entries {
		out[k.Digits()] = v
	}
	return out
}
