package allocation_test

import (
	"testing"
	"time"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func mustDate(t *testing.T, s string) allocation.Date {
	t.Helper()
	d, err := allocation.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func iv(t *testing.T, start, end string) allocation.Interval {
	t.Helper()
	return allocation.Interval{Start: mustDate(t, start), End: mustDate(t, end)}
}

// =============================================================================
// DATE TESTS
// =============================================================================

func TestParseDate_RoundTrip(t *testing.T) {
	d := mustDate(t, "2024-03-15")
	if d.String() != "2024-03-15" {
		t.Errorf("expected 2024-03-15, got %s", d.String())
	}
	if d.Weekday() != time.Friday {
		t.Errorf("2024-03-15 should be a Friday, got %v", d.Weekday())
	}
}

func TestParseDate_Invalid(t *testing.T) {
	if _, err := allocation.ParseDate("15/03/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if _, err := allocation.ParseDate(""); err == nil {
		t.Error("expected error for empty date")
	}
}

func TestStartOfWeek_AlignsToMonday(t *testing.T) {
	// 2024-01-01 is a Monday.
	cases := []struct {
		in, want string
	}{
		{"2024-01-01", "2024-01-01"}, // Monday maps to itself
		{"2024-01-03", "2024-01-01"}, // midweek
		{"2024-01-07", "2024-01-01"}, // Sunday belongs to the week started Monday
		{"2024-01-08", "2024-01-08"}, // next Monday
	}
	for _, c := range cases {
		got := mustDate(t, c.in).StartOfWeek()
		if got.String() != c.want {
			t.Errorf("StartOfWeek(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	from := mustDate(t, "2024-01-01")
	to := mustDate(t, "2024-01-08")
	if n := allocation.DaysBetween(from, to); n != 7 {
		t.Errorf("expected 7 days, got %d", n)
	}
	if n := allocation.DaysBetween(to, from); n != -7 {
		t.Errorf("expected -7 days, got %d", n)
	}
}

// =============================================================================
// INTERVAL TESTS
// =============================================================================

func TestInterval_Overlaps_Symmetric(t *testing.T) {
	// GIVEN: Two intervals sharing 2024-01-15..2024-01-31
	a := iv(t, "2024-01-01", "2024-01-31")
	b := iv(t, "2024-01-15", "2024-02-15")

	// THEN: Overlap holds in both directions
	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("expected symmetric overlap")
	}
}

func TestInterval_Overlaps_SharedBoundaryDay(t *testing.T) {
	// Intervals are inclusive: meeting at a single day still overlaps.
	a := iv(t, "2024-01-01", "2024-01-15")
	b := iv(t, "2024-01-15", "2024-01-31")

	if !a.Overlaps(b) {
		t.Error("expected overlap on shared boundary day")
	}
	if days := a.OverlapDays(b); days != 1 {
		t.Errorf("expected 1 overlap day, got %d", days)
	}
}

func TestInterval_Overlaps_Disjoint(t *testing.T) {
	a := iv(t, "2024-01-01", "2024-01-14")
	b := iv(t, "2024-01-15", "2024-01-31")

	if a.Overlaps(b) || b.Overlaps(a) {
		t.Error("adjacent but disjoint intervals must not overlap")
	}
	if days := a.OverlapDays(b); days != 0 {
		t.Errorf("expected 0 overlap days, got %d", days)
	}
}

func TestInterval_OverlapDays_Inclusive(t *testing.T) {
	a := iv(t, "2024-01-01", "2024-01-31")
	b := iv(t, "2024-01-15", "2024-02-15")

	// Jan 15 through Jan 31 inclusive.
	if days := a.OverlapDays(b); days != 17 {
		t.Errorf("expected 17 overlap days, got %d", days)
	}
}

func TestInterval_Days(t *testing.T) {
	if d := iv(t, "2024-01-01", "2024-01-07").Days(); d != 7 {
		t.Errorf("expected 7 days, got %d", d)
	}
	if d := iv(t, "2024-01-01", "2024-01-01").Days(); d != 1 {
		t.Errorf("single-day interval should be 1 day, got %d", d)
	}
}

func TestInterval_ContainsInterval(t *testing.T) {
	outer := iv(t, "2024-01-01", "2024-12-31")
	inner := iv(t, "2024-03-01", "2024-03-31")

	if !outer.ContainsInterval(inner) {
		t.Error("expected outer to contain inner")
	}
	if inner.ContainsInterval(outer) {
		t.Error("inner must not contain outer")
	}
	if !outer.ContainsInterval(outer) {
		t.Error("interval contains itself")
	}
}

// =============================================================================
// WEEK BUCKET TESTS
// =============================================================================

func TestWeeksBetween_MondayAligned(t *testing.T) {
	// GIVEN: A Monday-aligned two week range
	// WHEN: Bucketing into weeks
	// THEN: Two full Monday..Sunday buckets come back

	weeks := allocation.WeeksBetween(mustDate(t, "2024-01-01"), mustDate(t, "2024-01-14"))
	if len(weeks) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(weeks))
	}
	if weeks[0].Start.String() != "2024-01-01" || weeks[0].End.String() != "2024-01-07" {
		t.Errorf("unexpected first bucket %v", weeks[0])
	}
	if weeks[1].Start.String() != "2024-01-08" || weeks[1].End.String() != "2024-01-14" {
		t.Errorf("unexpected second bucket %v", weeks[1])
	}
}

func TestWeeksBetween_ClipsPartialEdges(t *testing.T) {
	// GIVEN: A range starting Wednesday and ending the next Tuesday
	// THEN: Both edge buckets are clipped to the range

	weeks := allocation.WeeksBetween(mustDate(t, "2024-01-03"), mustDate(t, "2024-01-09"))
	if len(weeks) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(weeks))
	}
	if weeks[0].Start.String() != "2024-01-03" || weeks[0].End.String() != "2024-01-07" {
		t.Errorf("first bucket should clip to range start, got %v", weeks[0])
	}
	if weeks[1].Start.String() != "2024-01-08" || weeks[1].End.String() != "2024-01-09" {
		t.Errorf("last bucket should clip to range end, got %v", weeks[1])
	}
}

func TestWeeksBetween_SingleDay(t *testing.T) {
	weeks := allocation.WeeksBetween(mustDate(t, "2024-01-03"), mustDate(t, "2024-01-03"))
	if len(weeks) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(weeks))
	}
	if weeks[0].Days() != 1 {
		t.Errorf("expected single-day bucket, got %d days", weeks[0].Days())
	}
}

func TestWeeksBetween_InvertedRange(t *testing.T) {
	weeks := allocation.WeeksBetween(mustDate(t, "2024-01-14"), mustDate(t, "2024-01-01"))
	if len(weeks) != 0 {
		t.Errorf("inverted range should produce no buckets, got %d", len(weeks))
	}
}
