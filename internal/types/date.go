package types

import (
	"fmt"
	"strconv"
	"strings"
)

// The game calendar has no leap years: every year is 365 days with the usual
// month lengths.
const (
	MonthsInYear = 12
	DaysInYear   = 365
)

var daysInMonth = [MonthsInYear]int64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

var daysUpToMonth = func() [MonthsInYear]int64 {
	var table [MonthsInYear]int64
	var days int64
	for m := 0; m < MonthsInYear; m++ {
		table[m] = days
		days += daysInMonth[m]
	}
	return table
}()

var monthFromDayInYear = func() [DaysInYear]int64 {
	var table [DaysInYear]int64
	month := int64(0)
	left := int64(0)
	for day := 0; day < DaysInYear; day++ {
		if left == 0 {
			left = daysInMonth[month]
			month++
		}
		left--
		table[day] = month
	}
	return table
}()

// Timespan is a signed day count.
type Timespan int64

// TimespanFromDays, -Months and -Years build spans. A month counts as 30
// days whatever its calendar length; a year is the fixed 365 days.
func TimespanFromDays(d int64) Timespan   { return Timespan(d) }
func TimespanFromMonths(m int64) Timespan { return Timespan(m * 30) }
func TimespanFromYears(y int64) Timespan  { return Timespan(y * DaysInYear) }

// Days returns the span as a day count.
func (t Timespan) Days() int64 { return int64(t) }

// Date is a day count since year 0, month 1, day 1.
type Date Timespan

// NewDate builds a date from calendar components, clamping month and day
// into valid ranges.
func NewDate(year, month, day int64) Date {
	if month < 1 {
		month = 1
	} else if month > MonthsInYear {
		month = MonthsInYear
	}
	if day < 1 {
		day = 1
	} else if day > daysInMonth[month-1] {
		day = daysInMonth[month-1]
	}
	return Date(year*DaysInYear + daysUpToMonth[month-1] + day - 1)
}

// Year, Month and Day decompose the date. Month and Day are 1-based.
func (d Date) Year() int64  { return int64(d) / DaysInYear }
func (d Date) Month() int64 { return monthFromDayInYear[int64(d)%DaysInYear] }
func (d Date) Day() int64 {
	return int64(d)%DaysInYear - daysUpToMonth[d.Month()-1] + 1
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int64) Date { return d + Date(n) }

// Add returns the date advanced by t.
func (d Date) Add(t Timespan) Date { return d + Date(t) }

// Sub returns the span from other to d.
func (d Date) Sub(other Date) Timespan { return Timespan(d - other) }

// Next returns the following day.
func (d Date) Next() Date { return d + 1 }

// IsMonthStart reports whether d is the first day of its month.
func (d Date) IsMonthStart() bool { return d.Day() == 1 }

// IsYearStart reports whether d is the first day of its year.
func (d Date) IsYearStart() bool { return int64(d)%DaysInYear == 0 }

// String formats the date as "Y.M.D".
func (d Date) String() string {
	return fmt.Sprintf("%d.%d.%d", d.Year(), d.Month(), d.Day())
}

// ParseDate reads a "Y", "Y.M" or "Y.M.D" string. Missing components default
// to 1; malformed components are an error.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("malformed date %q", s)
	}
	year, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil || year < 0 {
		return 0, fmt.Errorf("failed to read year in date %q", s)
	}
	month, day := int64(1), int64(1)
	if len(parts) > 1 {
		month, err = strconv.ParseInt(parts[1], 10, 32)
		if err != nil || month < 1 || month > MonthsInYear {
			return 0, fmt.Errorf("failed to read month in date %q", s)
		}
	}
	if len(parts) > 2 {
		day, err = strconv.ParseInt(parts[2], 10, 32)
		if err != nil || day < 1 || day > daysInMonth[month-1] {
			return 0, fmt.Errorf("failed to read day in date %q", s)
		}
	}
	return NewDate(year, month, day), nil
}
