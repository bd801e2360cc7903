package generic

// =============================================================================
// PERIOD - Closed date range
// =============================================================================

// Period is the date range [Start, End].
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31 (13th salary)
//   - Vacation accrual year: admission anniversary + 1 year - 1 day
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PeriodType defines how periods are calculated
type PeriodType string

const (
	PeriodCalendarYear PeriodType = "calendar_year" // Jan 1 - Dec 31
	PeriodAnniversary  PeriodType = "anniversary"   // Based on admission date
)

// PeriodConfig defines how to calculate periods
type PeriodConfig struct {
	Type PeriodType

	// For anniversary: the anchor date (e.g., admission date)
	AnchorDate *TimePoint
}

// =============================================================================
// PERIOD CALCULATOR - Determines which period a date falls into
// =============================================================================

// PeriodFor returns the period that contains the given date
func (pc PeriodConfig) PeriodFor(date TimePoint) Period {
	switch pc.Type {
	case PeriodAnniversary:
		if pc.AnchorDate == nil {
			// Fallback to calendar year
			return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}
		}
		return pc.anniversaryPeriod(date)

	default:
		return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}
	}
}

func (pc PeriodConfig) anniversaryPeriod(date TimePoint) Period {
	anchor := *pc.AnchorDate

	// Find which anniversary year we're in
	yearsElapsed := date.Year() - anchor.Year()
	anniversary := anchor.AddYears(yearsElapsed)

	// If date is before this year's anniversary, we're in previous period
	if date.Before(anniversary) {
		yearsElapsed--
		anniversary = anchor.AddYears(yearsElapsed)
	}

	return Period{Start: anniversary, End: anniversary.AddYears(1).AddDays(-1)}
}

// AccrualPeriod returns the vacation accrual year (periodo aquisitivo)
// of an employee admitted on admission that contains date.
func AccrualPeriod(admission, date TimePoint) Period {
	return PeriodConfig{Type: PeriodAnniversary, AnchorDate: &admission}.PeriodFor(date)
}

// MonthsOfYearEmployed counts the months of year in which the employee
// worked at least 15 days, given admission and an end date (inclusive).
func MonthsOfYearEmployed(year int, admission, end TimePoint) int {
	calendar := PeriodConfig{Type: PeriodCalendarYear}.PeriodFor(StartOfYear(year))
	start, last := calendar.Start, calendar.End
	if admission.After(start) {
		start = admission
	}
	if end.Before(last) {
		last = end
	}
	if last.Before(start) || !calendar.Contains(start) {
		return 0
	}

	months := 0
	for m := start.Month(); m <= last.Month(); m++ {
		from := StartOfMonth(year, m)
		if from.Before(start) {
			from = start
		}
		to := EndOfMonth(year, m)
		if to.After(last) {
			to = last
		}
		if DaysBetween(from, to)+1 >= 15 {
			months++
		}
	}
	return months
}
