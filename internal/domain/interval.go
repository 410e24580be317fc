package domain

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether i and o share any instant. Intervals that merely
// touch (one ends exactly where the other starts) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// FreeIntervals returns the gaps of window not covered by busy, keeping only
// gaps at least minLen long. busy may be unsorted and may extend past window.
func FreeIntervals(window Interval, busy []Interval, minLen time.Duration) []Interval {
	if !window.End.After(window.Start) {
		return nil
	}

	sorted := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.Overlaps(window) {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var out []Interval
	cursor := window.Start
	for _, b := range sorted {
		if b.Start.After(cursor) {
			gap := Interval{Start: cursor, End: b.Start}
			if gap.Duration() >= minLen {
				out = append(out, gap)
			}
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(window.End) {
			return out
		}
	}
	if cursor.Before(window.End) {
		gap := Interval{Start: cursor, End: window.End}
		if gap.Duration() >= minLen {
			out = append(out, gap)
		}
	}
	return out
}
