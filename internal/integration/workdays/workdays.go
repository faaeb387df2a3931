// Package workdays calculates follow-up deadlines in business time.
package workdays

import "time"

// Default business hours of the CRM account.
const (
	DefaultStartHour = 9
	DefaultEndHour   = 18
)

// NextDeadline returns the instant workingDays business days after start,
// clamped to business hours. Days are counted in the given location; only
// Monday through Friday qualify. Each qualifying day's deadline is
// endHour:00, except that a start-of-day clock hour before startHour clamps
// to startHour:00. workingDays must be >= 1.
func NextDeadline(start time.Time, loc *time.Location, workingDays, startHour, endHour int) time.Time {
	t := start.In(loc)
	counted := 0
	deadline := t

	for counted < workingDays {
		t = t.AddDate(0, 0, 1)
		if !isWorkingDay(t) {
			continue
		}

		hour := endHour
		if t.Hour() < startHour {
			hour = startHour
		}
		deadline = time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, loc)
		counted++
	}

	return deadline
}

func isWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
