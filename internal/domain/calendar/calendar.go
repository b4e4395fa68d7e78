// Package calendar contains the pure time arithmetic for the simulation calendar.
// A year is 426 days of 6 hours each; UT values are seconds since calendar start.
// This package is PURE and must NOT import any infrastructure packages.
package calendar

import (
	"fmt"
	"math"
)

const (
	DaysPerYear = 426
	HoursPerDay = 6
	DaySeconds  = HoursPerDay * 3600.0
	YearSeconds = DaysPerYear * DaySeconds
)

// YearIndexOf returns the zero-based year containing ut.
func YearIndexOf(ut float64) int {
	return int(math.Floor(ut / YearSeconds))
}

// CurrentYear returns the displayed calendar year for ut (year 1 starts at UT 0).
func CurrentYear(ut float64) int {
	return YearIndexOf(ut) + 1
}

// BirthdayTime returns the UT at which a birthday falls in the given zero-based year.
func BirthdayTime(yearIndex, birthday int) float64 {
	return float64(yearIndex)*YearSeconds + float64(birthday-1)*DaySeconds
}

// CountBirthdaysBetween counts the occurrences of an annual birthday in the
// half-open interval (startUT, endUT]. Consecutive intervals sharing an
// endpoint never count the same birthday twice.
func CountBirthdaysBetween(birthday int, startUT, endUT float64) int {
	if endUT <= startUT {
		return 0
	}

	count := 0
	for y := YearIndexOf(startUT); y <= YearIndexOf(endUT); y++ {
		t := BirthdayTime(y, birthday)
		if t > startUT && t <= endUT {
			count++
		}
	}
	return count
}

// Date is a calendar position: 1-based year and 1-based day of that year.
type Date struct {
	Year int
	Day  int
}

// DateOf converts a UT value into its calendar date.
func DateOf(ut float64) Date {
	year := CurrentYear(ut)
	yearStart := float64(year-1) * YearSeconds
	day := int(math.Floor((ut-yearStart)/DaySeconds)) + 1
	return Date{Year: year, Day: day}
}

func (d Date) String() string {
	return fmt.Sprintf("Y%d, DAY%d", d.Year, d.Day)
}
