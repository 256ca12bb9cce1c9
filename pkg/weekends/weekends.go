// Package weekends reads production calendar files: one JSON document per
// year listing the non-working days of each month.
package weekends

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

type calendarJSON struct {
	Year        int             `json:"year"`
	Months      []MonthWeekends `json:"months"`
	Transitions []Transition    `json:"transitions"`
	Statistic   Statistic       `json:"statistic"`
}

// MonthWeekends lists days as "1,2,3+,7*". A "+" marks a holiday moved from
// another date, "*" a shortened working day before a holiday.
type MonthWeekends struct {
	Month int    `json:"month"`
	Days  string `json:"days"`
}

type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Statistic struct {
	Workdays int     `json:"workdays"`
	Holidays int     `json:"holidays"`
	Hours40  float64 `json:"hours40"`
	Hours36  float64 `json:"hours36"`
	Hours24  float64 `json:"hours24"`
}

type NonWorkingDay struct {
	Date  time.Time `json:"date"`
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Day   int       `json:"day"`
}

// Calendar is one parsed year. Dates are UTC midnights.
type Calendar struct {
	Year  int
	Days  []NonWorkingDay
	Stats Statistic
}

func ParseFile(filePath string) (*Calendar, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

func Parse(r io.Reader) (*Calendar, error) {
	var doc calendarJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal calendar: %w", err)
	}
	if doc.Year == 0 {
		return nil, fmt.Errorf("calendar has no year")
	}

	cal := &Calendar{Year: doc.Year, Stats: doc.Statistic}

	for _, monthData := range doc.Months {
		if monthData.Month < 1 || monthData.Month > 12 {
			return nil, fmt.Errorf("invalid month %d", monthData.Month)
		}

		for _, dayStr := range strings.Split(monthData.Days, ",") {
			dayStr = strings.TrimSpace(dayStr)
			if dayStr == "" || strings.HasSuffix(dayStr, "*") {
				continue
			}
			dayStr = strings.TrimSuffix(dayStr, "+")

			day, err := strconv.Atoi(dayStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse day '%s' in month %d: %w",
					dayStr, monthData.Month, err)
			}

			date := time.Date(doc.Year, time.Month(monthData.Month), day, 0, 0, 0, 0, time.UTC)
			if date.Month() != time.Month(monthData.Month) {
				return nil, fmt.Errorf("day %d does not exist in month %d", day, monthData.Month)
			}

			cal.Days = append(cal.Days, NonWorkingDay{
				Date:  date,
				Year:  doc.Year,
				Month: monthData.Month,
				Day:   day,
			})
		}
	}

	return cal, nil
}

// ForMonth returns the non-working days of the given month.
func (c *Calendar) ForMonth(month int) []NonWorkingDay {
	result := []NonWorkingDay{}
	for _, day := range c.Days {
		if day.Month == month {
			result = append(result, day)
		}
	}
	return result
}

// Contains matches by calendar date, ignoring the time and zone of date.
func (c *Calendar) Contains(date time.Time) bool {
	for _, day := range c.Days {
		if day.Year == date.Year() && day.Month == int(date.Month()) && day.Day == date.Day() {
			return true
		}
	}
	return false
}
