/*
interval.go - Inclusive date intervals and week bucketing

PURPOSE:
  Pure interval math underpinning every other component:
  - Overlap detection between two date ranges (conflict detection)
  - Partitioning an arbitrary range into Monday-aligned week buckets
    (over-allocation analysis, trend series)

CONVENTIONS:
  Intervals are INCLUSIVE on both ends. [Jan 1, Jan 31] covers 31 days.
  Two intervals that merely touch (a.End == b.Start) DO overlap: the shared
  day is committed on both sides.

  Week buckets are Monday-aligned. The first and last buckets of a range are
  clipped to the range, so they may be shorter than 7 days.

SEE ALSO:
  - conflict.go: Uses Overlaps/OverlapDays
  - analyzer.go: Uses WeeksBetween
*/
package allocation

// Interval is an inclusive date range.
type Interval struct {
	Start Date
	End   Date
}

// Overlaps reports whether two inclusive intervals share at least one day.
// A zero-length touch counts: aStart <= bEnd && bStart <= aEnd.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(iv.End)
}

// OverlapDays returns the inclusive day count shared by two intervals,
// or 0 when they are disjoint.
func (iv Interval) OverlapDays(other Interval) int {
	if !iv.Overlaps(other) {
		return 0
	}
	start := MaxDate(iv.Start, other.Start)
	end := MinDate(iv.End, other.End)
	return DaysBetween(start, end) + 1
}

// Contains reports whether d falls within the interval.
func (iv Interval) Contains(d Date) bool {
	return d.AfterOrEqual(iv.Start) && d.BeforeOrEqual(iv.End)
}

// ContainsInterval reports whether other lies entirely within iv.
// Used to check allocation dates against project bounds.
func (iv Interval) ContainsInterval(other Interval) bool {
	return other.Start.AfterOrEqual(iv.Start) && other.End.BeforeOrEqual(iv.End)
}

// Days returns the inclusive day count of the interval.
func (iv Interval) Days() int {
	return DaysBetween(iv.Start, iv.End) + 1
}

// Clip intersects the interval with bounds. The second return value is false
// when the two do not overlap.
func (iv Interval) Clip(bounds Interval) (Interval, bool) {
	if !iv.Overlaps(bounds) {
		return Interval{}, false
	}
	return Interval{
		Start: MaxDate(iv.Start, bounds.Start),
		End:   MinDate(iv.End, bounds.End),
	}, true
}

func (iv Interval) String() string {
	return "[" + iv.Start.String() + ", " + iv.End.String() + "]"
}

// WeeksBetween partitions [start, end] into Monday-aligned week buckets.
// The first and last buckets are clipped to the input range, so callers can
// sum bucket day counts back to the full range. Returns nil when end < start.
func WeeksBetween(start, end Date) []Interval {
	if end.Before(start) {
		return nil
	}

	var weeks []Interval
	cursor := start
	for cursor.BeforeOrEqual(end) {
		weekEnd := cursor.StartOfWeek().AddDays(6)
		weeks = append(weeks, Interval{
			Start: cursor,
			End:   MinDate(weekEnd, end),
		})
		cursor = weekEnd.AddDays(1)
	}
	return weeks
}
