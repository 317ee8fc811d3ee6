// Package birthday computes which contacts should be congratulated soon.
package birthday

import (
	"time"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
)

// DefaultWindow is the number of days ahead that is searched for birthdays.
const DefaultWindow = 7

// DateLayout is the format of a congratulation date.
const DateLayout = "2006.01.02"

// Congratulation names a contact and the working day on which to congratulate them.
type Congratulation struct {
	Name string
	Date time.Time
}

// FormattedDate returns the congratulation date as YYYY.MM.DD.
func (c Congratulation) FormattedDate() string {
	return c.Date.Format(DateLayout)
}

// Upcoming returns the contacts whose next birthday is at most window days after today, in
// directory order. A birthday on a Saturday or Sunday is congratulated on the following Monday.
// The shifted date is not checked against the window again, so it may lie beyond it.
//
// Only the calendar date of today is used.
func Upcoming(dir *model.Directory, window int, today time.Time) []Congratulation {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	var result []Congratulation
	for name, record := range dir.All() {
		b, ok := record.Birthday()
		if !ok {
			continue
		}
		next := anniversary(b.Date(), start.Year())
		if next.Before(start) {
			next = anniversary(b.Date(), start.Year()+1)
		}
		if daysBetween(start, next) > window {
			continue
		}
		result = append(result, Congratulation{Name: name, Date: shiftWeekend(next)})
	}
	return result
}

// anniversary projects the month and day of the birthday onto the given year. The 29th of
// February becomes the 28th in years that are not leap years.
func anniversary(birthday time.Time, year int) time.Time {
	month, day := birthday.Month(), birthday.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// daysBetween counts whole days from a to b. Both must be midnight UTC.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// shiftWeekend moves Saturday and Sunday to the following Monday.
func shiftWeekend(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, 2)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}
