package rolling

import (
	"time"

	"github.com/samber/lo"
)

// Point is one period's value in a series.
type Point struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Count     Count     `json:"count"     yaml:"count"`
}

// Series is the period-aligned, zero-filled values of one ranked item.
type Series struct {
	Name   ItemID  `json:"name"   yaml:"name"`
	Points []Point `json:"points" yaml:"points"`
}

// Values returns the counts in period order.
func (s Series) Values() []Count {
	return lo.Map(s.Points, func(p Point, _ int) Count {
		return p.Count
	})
}

// Total returns the sum of all points.
func (s Series) Total() Count {
	return lo.SumBy(s.Points, func(p Point) Count {
		return p.Count
	})
}

// Peak returns the largest point value.
func (s Series) Peak() Count {
	var peak Count

	for _, p := range s.Points {
		peak = max(peak, p.Count)
	}

	return peak
}

// BuildSeries groups ranked entries by item and lays each item out over periods,
// writing 0 wherever the item was not in that period's top-N. Items appear in
// order of first appearance. Entries for periods not listed are ignored.
func BuildSeries(ranked []RankedEntry, periods []time.Time) []Series {
	position := make(map[int64]int, len(periods))
	for i, p := range periods {
		position[p.UnixNano()] = i
	}

	items := lo.Uniq(lo.Map(ranked, func(e RankedEntry, _ int) ItemID {
		return e.Item
	}))

	byItem := make(map[ItemID]*Series, len(items))
	result := make([]Series, len(items))

	for i, item := range items {
		points := make([]Point, len(periods))
		for j, p := range periods {
			points[j] = Point{Timestamp: p}
		}

		result[i] = Series{Name: item, Points: points}
		byItem[item] = &result[i]
	}

	for _, e := range ranked {
		pos, ok := position[e.PeriodEnd.UnixNano()]
		if !ok {
			continue
		}

		byItem[e.Item].Points[pos].Count = e.WindowedCount
	}

	return result
}
