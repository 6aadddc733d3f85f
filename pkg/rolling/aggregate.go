// Package rolling rebuilds rolling-window top-N rankings from disjoint period
// snapshots and lays them out as zero-filled series for charting.
//
// The pipeline is Accumulator (raw counts per period) -> Rank (top-N per
// period by windowed sum) -> BuildSeries (per-item, period-aligned values).
// Aggregate runs all three.
package rolling

import (
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/chartfang/pkg/timeframe"
)

// Aggregate feeds every snapshot into a fresh Accumulator spanning the earliest
// to the latest period end, ranks each period and builds the series.
// Every snapshot's period appears in the output even if it ranked nothing.
func Aggregate(snapshots []Snapshot, topN int, tf timeframe.Timeframe) ([]Series, error) {
	err := tf.Validate()
	if err != nil {
		return nil, err
	}

	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}

	if len(snapshots) == 0 {
		return []Series{}, nil
	}

	start, end := periodBounds(snapshots)

	acc, err := NewAccumulator(start, end, tf)
	if err != nil {
		return nil, err
	}

	for i, s := range snapshots {
		addErr := acc.AddSnapshot(s)
		if addErr != nil {
			return nil, fmt.Errorf("snapshot %d: %w", i, addErr)
		}
	}

	ranked, err := Rank(acc, topN)
	if err != nil {
		return nil, err
	}

	return BuildSeries(ranked, acc.Periods()), nil
}

func periodBounds(snapshots []Snapshot) (start, end time.Time) {
	start, end = snapshots[0].PeriodEnd, snapshots[0].PeriodEnd

	for _, s := range snapshots[1:] {
		if s.PeriodEnd.Before(start) {
			start = s.PeriodEnd
		}

		if s.PeriodEnd.After(end) {
			end = s.PeriodEnd
		}
	}

	return start, end
}
