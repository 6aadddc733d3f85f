package rolling

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/Sumatoshi-tech/chartfang/pkg/timeframe"
)

// bucket holds the raw counts recorded for one period end.
type bucket struct {
	end    time.Time
	order  []ItemID // First-seen order of items.
	counts map[ItemID]Count
	fed    bool // A whole snapshot was added for this period.
}

func newBucket(end time.Time) *bucket {
	return &bucket{end: end, counts: make(map[ItemID]Count)}
}

// Accumulator keeps raw per-period counts and answers backward-looking
// windowed sums clamped to the start of the aggregation range.
// It is not safe for concurrent use.
type Accumulator struct {
	start  time.Time
	window time.Duration

	buckets []*bucket // Sorted by end.
	index   map[int64]*bucket
}

// NewAccumulator creates an accumulator for the range [start, end] whose window
// length follows tf.
func NewAccumulator(start, end time.Time, tf timeframe.Timeframe) (*Accumulator, error) {
	window, err := tf.WindowLength(start, end)
	if err != nil {
		return nil, fmt.Errorf("accumulator window: %w", err)
	}

	return &Accumulator{
		start:  start,
		window: window,
		index:  make(map[int64]*bucket),
	}, nil
}

// Add adds count to the raw bucket for (periodEnd, item).
func (a *Accumulator) Add(periodEnd time.Time, item ItemID, count Count) {
	b := a.bucketFor(periodEnd)

	if _, ok := b.counts[item]; !ok {
		b.order = append(b.order, item)
	}

	b.counts[item] += count
}

// AddSnapshot feeds a whole snapshot. Each period may be fed only once.
// An empty snapshot still registers its period.
func (a *Accumulator) AddSnapshot(s Snapshot) error {
	err := s.Validate()
	if err != nil {
		return err
	}

	b := a.bucketFor(s.PeriodEnd)
	if b.fed {
		return fmt.Errorf("%w: %s", ErrDuplicatePeriod, s.PeriodEnd.UTC().Format(time.RFC3339))
	}

	b.fed = true

	for _, e := range s.Entries {
		a.Add(s.PeriodEnd, e.Item, e.Count)
	}

	return nil
}

// WindowedSum returns the sum of item's raw counts over every recorded period
// end ts with max(start, periodEnd-window) <= ts <= periodEnd.
func (a *Accumulator) WindowedSum(periodEnd time.Time, item ItemID) Count {
	windowStart := periodEnd.Add(-a.window)
	if windowStart.Before(a.start) {
		windowStart = a.start
	}

	first := sort.Search(len(a.buckets), func(i int) bool {
		return !a.buckets[i].end.Before(windowStart)
	})
	last := sort.Search(len(a.buckets), func(i int) bool {
		return a.buckets[i].end.After(periodEnd)
	})

	if first >= last {
		return 0
	}

	return lo.SumBy(a.buckets[first:last], func(b *bucket) Count {
		return b.counts[item]
	})
}

// Periods returns every recorded period end in increasing order.
func (a *Accumulator) Periods() []time.Time {
	return lo.Map(a.buckets, func(b *bucket, _ int) time.Time {
		return b.end
	})
}

// Items returns the items recorded for periodEnd in first-seen order.
func (a *Accumulator) Items(periodEnd time.Time) []ItemID {
	b, ok := a.index[periodEnd.UnixNano()]
	if !ok {
		return nil
	}

	return slices.Clone(b.order)
}

func (a *Accumulator) bucketFor(periodEnd time.Time) *bucket {
	key := periodEnd.UnixNano()
	if b, ok := a.index[key]; ok {
		return b
	}

	b := newBucket(periodEnd)
	a.index[key] = b

	pos := sort.Search(len(a.buckets), func(i int) bool {
		return a.buckets[i].end.After(periodEnd)
	})
	a.buckets = slices.Insert(a.buckets, pos, b)

	return b
}
