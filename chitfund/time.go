package chitfund

import (
	"time"
)

// =============================================================================
// TIME POINT - Explicit evaluation instants (no ambient wall-clock reads)
// =============================================================================

// TimePoint is a point in time in UTC. Every clock, projection, and
// classification function takes its evaluation instant explicitly so the
// engine stays deterministic and testable; only callers at the boundary
// ever consult the wall clock.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func At(t time.Time) TimePoint {
	return TimePoint{Time: t.UTC()}
}

func Today() TimePoint {
	now := time.Now().UTC()
	return NewTimePoint(now.Year(), now.Month(), now.Day())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool  { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool  { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool {
	return tp.Before(other) || tp.Equal(other)
}
func (tp TimePoint) AfterOrEqual(other TimePoint) bool {
	return tp.After(other) || tp.Equal(other)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format("2006-01-02") }

// =============================================================================
// TIME UTILITIES
// =============================================================================

// ElapsedDays returns the whole days between from and to, rounded up so any
// partial day counts as a full day. Returns 0 if to is not after from.
func ElapsedDays(from, to TimePoint) int {
	if !to.After(from) {
		return 0
	}
	hours := to.Time.Sub(from.Time).Hours()
	days := int(hours / 24)
	if float64(days)*24 < hours {
		days++
	}
	return days
}

// MonthsCrossed counts calendar-month boundaries between from and to.
// Day-of-month is intentionally ignored: crossing into a new month always
// counts even if fewer than 30 days have elapsed.
func MonthsCrossed(from, to TimePoint) int {
	return monthIndex(to) - monthIndex(from)
}

func monthIndex(tp TimePoint) int {
	return tp.Year()*12 + int(tp.Month())
}
