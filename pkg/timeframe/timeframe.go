// Package timeframe defines the chart timeframes a user can select and the date
// arithmetic derived from them.
package timeframe

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/chartfang/pkg/span"
)

// Timeframe is a user-selectable chart timeframe label.
type Timeframe string

// Recognised timeframes.
const (
	Last7Days    Timeframe = "last-7-days"
	LastMonth    Timeframe = "last-month"
	Last3Months  Timeframe = "last-3-months"
	Last6Months  Timeframe = "last-6-months"
	Last12Months Timeframe = "last-12-months"
	Overall      Timeframe = "overall"
)

// Default is the timeframe preselected when none is given.
const Default = Last6Months

// ErrInvalidTimeframe is returned for labels outside the recognised set.
var ErrInvalidTimeframe = errors.New("unrecognized timeframe")

var ordered = []Timeframe{Last7Days, LastMonth, Last3Months, Last6Months, Last12Months, Overall}

var labels = map[Timeframe]string{
	Last7Days:    "Last 7 days",
	LastMonth:    "Last month",
	Last3Months:  "Last 3 months",
	Last6Months:  "Last 6 months",
	Last12Months: "Last 12 months",
	Overall:      "Overall",
}

// lookback is how far before the to-date each bounded timeframe starts.
type lookback struct {
	months int
	days   int
}

var lookbacks = map[Timeframe]lookback{
	Last7Days:    {days: 14},
	LastMonth:    {months: 2},
	Last3Months:  {months: 6},
	Last6Months:  {months: 12},
	Last12Months: {months: 24},
}

// All returns every recognised timeframe in display order.
func All() []Timeframe {
	out := make([]Timeframe, len(ordered))
	copy(out, ordered)

	return out
}

// Parse validates a timeframe label.
func Parse(s string) (Timeframe, error) {
	tf := Timeframe(s)

	err := tf.Validate()
	if err != nil {
		return "", err
	}

	return tf, nil
}

// Validate returns ErrInvalidTimeframe if tf is not recognised.
func (tf Timeframe) Validate() error {
	if _, ok := labels[tf]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTimeframe, string(tf))
	}

	return nil
}

// Label returns the human-readable name.
func (tf Timeframe) Label() string {
	return labels[tf]
}

// String implements fmt.Stringer.
func (tf Timeframe) String() string {
	return string(tf)
}

// FromDate returns the aligned start of the query range ending at to.
// registeredAt is only consulted for Overall.
func (tf Timeframe) FromDate(to, registeredAt time.Time) (time.Time, error) {
	if tf == Overall {
		return span.AlignWeek(registeredAt), nil
	}

	back, ok := lookbacks[tf]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, string(tf))
	}

	from := subtractMonths(to, back.months).AddDate(0, 0, -back.days)

	return span.AlignWeek(from), nil
}

// subtractMonths moves t back n calendar months, clamping the day to the
// last day of the target month (Aug 31 minus 6 months is Feb 28).
func subtractMonths(t time.Time, n int) time.Time {
	if n == 0 {
		return t
	}

	first := time.Date(t.Year(), t.Month()-time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()

	return first.AddDate(0, 0, min(t.Day(), lastDay)-1)
}

// WindowLength returns how far back a windowed sum reaches for an aggregation
// covering [start, end]. Overall spans the whole range; every other timeframe
// looks back half of it.
func (tf Timeframe) WindowLength(start, end time.Time) (time.Duration, error) {
	err := tf.Validate()
	if err != nil {
		return 0, err
	}

	total := end.Sub(start)
	if tf == Overall {
		return total, nil
	}

	return total / 2, nil
}
