package rolling

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for snapshot and aggregation input.
var (
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrDuplicatePeriod   = errors.New("snapshot period already added")
	ErrInvalidTopN       = errors.New("top-n must be at least 1")
)

// ItemID identifies a ranked item (an artist, album or track name).
type ItemID string

// Count is a non-negative play count.
type Count uint64

// Entry is one item's raw count within a snapshot.
type Entry struct {
	Item  ItemID `json:"item"  yaml:"item"`
	Count Count  `json:"count" yaml:"count"`
}

// NewEntry converts a signed count read from the wire into an Entry.
// Negative counts are rejected with ErrMalformedSnapshot.
func NewEntry(item string, count int64) (Entry, error) {
	if count < 0 {
		return Entry{}, fmt.Errorf("%w: item %q has negative count %d", ErrMalformedSnapshot, item, count)
	}

	return Entry{Item: ItemID(item), Count: Count(count)}, nil
}

// Snapshot holds the raw counts observed during one period, keyed by the
// period's end. Entries keep the order in which the source listed them.
type Snapshot struct {
	PeriodEnd time.Time `json:"period_end" yaml:"period_end"`
	Entries   []Entry   `json:"entries"    yaml:"entries"`
}

// NewSnapshot builds a snapshot from entries in source order.
func NewSnapshot(periodEnd time.Time, entries ...Entry) Snapshot {
	return Snapshot{PeriodEnd: periodEnd, Entries: entries}
}

// EmptySnapshot returns a snapshot with no counts for the given period.
func EmptySnapshot(periodEnd time.Time) Snapshot {
	return Snapshot{PeriodEnd: periodEnd, Entries: []Entry{}}
}

// Validate rejects snapshots without a period end or with a repeated item.
func (s Snapshot) Validate() error {
	if s.PeriodEnd.IsZero() {
		return fmt.Errorf("%w: zero period end", ErrMalformedSnapshot)
	}

	seen := make(map[ItemID]struct{}, len(s.Entries))

	for _, e := range s.Entries {
		if _, dup := seen[e.Item]; dup {
			return fmt.Errorf("%w: item %q listed twice for period %s",
				ErrMalformedSnapshot, e.Item, s.PeriodEnd.UTC().Format(time.RFC3339))
		}

		seen[e.Item] = struct{}{}
	}

	return nil
}

// Total returns the sum of all counts.
func (s Snapshot) Total() Count {
	var total Count

	for _, e := range s.Entries {
		total += e.Count
	}

	return total
}
