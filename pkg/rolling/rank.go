package rolling

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// RankedEntry is an item that made a period's top-N, with its windowed sum.
type RankedEntry struct {
	PeriodEnd     time.Time `json:"period_end"     yaml:"period_end"`
	Item          ItemID    `json:"item"           yaml:"item"`
	WindowedCount Count     `json:"windowed_count" yaml:"windowed_count"`
}

// Rank ranks each period independently by windowed sum and keeps the first topN
// items. Only items present in a period's own snapshot compete for that period.
// Ties keep the snapshot's insertion order. The result lists periods in
// increasing order, each period's entries in rank order.
func Rank(acc *Accumulator, topN int) ([]RankedEntry, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}

	var result []RankedEntry

	for _, end := range acc.Periods() {
		ranked := lo.Map(acc.Items(end), func(item ItemID, _ int) RankedEntry {
			return RankedEntry{
				PeriodEnd:     end,
				Item:          item,
				WindowedCount: acc.WindowedSum(end, item),
			}
		})

		slices.SortStableFunc(ranked, func(x, y RankedEntry) int {
			return cmp.Compare(y.WindowedCount, x.WindowedCount)
		})

		result = append(result, ranked[:min(topN, len(ranked))]...)
	}

	return result, nil
}
