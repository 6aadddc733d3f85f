// Package span partitions a half-open time range into consecutive fixed-length periods.
package span

import (
	"errors"
	"fmt"
	"time"
)

// Week is the nominal length of one chart period.
const Week = 7 * 24 * time.Hour

// weekAnchorOffset places aligned week starts at midday.
const weekAnchorOffset = 12 * time.Hour

// Sentinel errors for span generation.
var (
	ErrInvalidDuration = errors.New("span duration must be positive")
	ErrInvalidRange    = errors.New("span range start is after end")
)

// Span is the half-open interval [Start, End).
type Span struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end"   yaml:"end"`
}

// String formats the span as two RFC 3339 timestamps.
func (s Span) String() string {
	return s.Start.UTC().Format(time.RFC3339) + "/" + s.End.UTC().Format(time.RFC3339)
}

// Range splits [start, end) into consecutive spans of length d.
// The last span is shortened to end exactly at end. start == end yields no spans.
func Range(start, end time.Time, d time.Duration) ([]Span, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}

	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	count := int(end.Sub(start) / d)
	if end.Sub(start)%d != 0 {
		count++
	}

	result := make([]Span, 0, count)

	for s := start; s.Before(end); s = s.Add(d) {
		e := s.Add(d)
		if e.After(end) {
			e = end
		}

		result = append(result, Span{Start: s, End: e})
	}

	return result, nil
}

// Weekly splits [start, end) into week-long spans.
func Weekly(start, end time.Time) ([]Span, error) {
	return Range(start, end, Week)
}

// AlignWeek moves t back to the beginning of its week (Sunday 00:00 UTC)
// and adds twelve hours.
func AlignWeek(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	return midnight.AddDate(0, 0, -int(midnight.Weekday())).Add(weekAnchorOffset)
}

// Ends returns the end timestamp of every span, in order.
func Ends(spans []Span) []time.Time {
	ends := make([]time.Time, len(spans))

	for i, s := range spans {
		ends[i] = s.End
	}

	return ends
}
