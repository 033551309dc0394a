package statement

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDate(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		due      civil.Date
		want     civil.Date
	}{
		{"year rollover", "31/12", civil.Date{Year: 2025, Month: time.January, Day: 15}, civil.Date{Year: 2024, Month: time.December, Day: 31}},
		{"same month before due day", "10/01", civil.Date{Year: 2025, Month: time.January, Day: 15}, civil.Date{Year: 2025, Month: time.January, Day: 10}},
		{"due day itself is previous year", "15/01", civil.Date{Year: 2025, Month: time.January, Day: 15}, civil.Date{Year: 2024, Month: time.January, Day: 15}},
		{"earlier month", "10/03", civil.Date{Year: 2025, Month: time.March, Day: 20}, civil.Date{Year: 2025, Month: time.March, Day: 10}},
		{"later month", "28/11", civil.Date{Year: 2025, Month: time.March, Day: 20}, civil.Date{Year: 2024, Month: time.November, Day: 28}},
		{"leap day in leap year", "29/02", civil.Date{Year: 2024, Month: time.March, Day: 10}, civil.Date{Year: 2024, Month: time.February, Day: 29}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDate(tt.fragment, tt.due)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDate_Errors(t *testing.T) {
	due := civil.Date{Year: 2025, Month: time.March, Day: 20}

	_, err := ResolveDate("10/03", civil.Date{})
	assert.True(t, errors.Is(err, ErrNoDueDate))

	for _, frag := range []string{"45/13", "00/01", "29/02", "1003"} {
		_, err := ResolveDate(frag, due)
		assert.ErrorIs(t, err, errNotADate, frag)
	}
}

func TestParseDueDate(t *testing.T) {
	d, err := ParseDueDate("20/03/2025")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.March, Day: 20}, d)

	_, err = ParseDueDate("31/02/2025")
	assert.Error(t, err)
}
