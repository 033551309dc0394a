package statement

import (
	"errors"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// ErrNoDueDate means a transaction was found before any "Vencimento:" line,
// so its day/month could not be placed in a year.
var ErrNoDueDate = errors.New("statement: no due date found to resolve transaction date")

// errNotADate marks a DD/MM fragment that is no calendar day. Callers treat
// it as a non-match.
var errNotADate = errors.New("statement: fragment is not a calendar date")

// ParseDueDate reads a DD/MM/YYYY due date.
func ParseDueDate(s string) (civil.Date, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}

// ResolveDate places a DD/MM fragment in the billing cycle closing at due.
// Days strictly before the due day/month fall in the due year, everything
// else in the year before.
func ResolveDate(fragment string, due civil.Date) (civil.Date, error) {
	if !due.IsValid() {
		return civil.Date{}, ErrNoDueDate
	}
	if len(fragment) != 5 || fragment[2] != '/' {
		return civil.Date{}, errNotADate
	}
	day, err1 := strconv.Atoi(fragment[:2])
	month, err2 := strconv.Atoi(fragment[3:])
	if err1 != nil || err2 != nil {
		return civil.Date{}, errNotADate
	}

	year := due.Year - 1
	if month < int(due.Month) || (month == int(due.Month) && day < due.Day) {
		year = due.Year
	}

	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, errNotADate
	}
	return d, nil
}
