package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Calendar day (payroll never needs finer granularity)
// =============================================================================

type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func FromTime(t time.Time) TimePoint { return NewTimePoint(t.Year(), t.Month(), t.Day()) }

// ParseTimePoint parses a YYYY-MM-DD date.
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return FromTime(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint  { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }
func (tp TimePoint) AddYears(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(n, 0, 0)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// DaysInMonth returns how many days the month of tp has (28..31).
func (tp TimePoint) DaysInMonth() int { return EndOfMonth(tp.Year(), tp.Month()).Day() }

func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

// MarshalText encodes tp as YYYY-MM-DD, or empty when zero.
func (tp TimePoint) MarshalText() ([]byte, error) {
	if tp.IsZero() {
		return []byte{}, nil
	}
	return []byte(tp.String()), nil
}

func (tp *TimePoint) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*tp = TimePoint{}
		return nil
	}
	parsed, err := ParseTimePoint(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int { return int(to.normalize().Sub(from.normalize()).Hours() / 24) }
func StartOfYear(year int) TimePoint     { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint       { return NewTimePoint(year, time.December, 31) }
func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return TimePoint{Time: t}
}

// CalendarMonthsBetween counts month boundaries crossed from -> to, ignoring days.
// Jan 31 -> Feb 1 is one month.
func CalendarMonthsBetween(from, to TimePoint) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// FullYearsBetween counts completed anniversaries of from up to and including to.
func FullYearsBetween(from, to TimePoint) int {
	if to.Before(from) {
		return 0
	}
	years := to.Year() - from.Year()
	if from.AddYears(years).After(to) {
		years--
	}
	return years
}

// FractionMonths counts "avos": calendar months touched from start to end
// inclusive, dropping the last one when end falls before the 15th.
// The result is clamped to [0, 12].
func FractionMonths(start, end TimePoint) int {
	if end.Before(start) {
		return 0
	}
	months := CalendarMonthsBetween(start, end) + 1
	if end.Day() < 15 {
		months--
	}
	if months < 0 {
		return 0
	}
	if months > 12 {
		return 12
	}
	return months
}
