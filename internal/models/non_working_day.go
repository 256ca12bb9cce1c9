package models

import (
	"time"
)

// NonWorkingDay is a calendar day when no regular shift is expected.
// Leave booking skips these days and exports annotate them.
type NonWorkingDay struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"uniqueIndex" json:"date"`
	Year      int       `gorm:"index" json:"year"`
	Month     int       `gorm:"index" json:"month"`
	Day       int       `json:"day"`
	Source    string    `gorm:"type:varchar(20);default:'calendar'" json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNonWorkingDay truncates date to a UTC calendar day.
func NewNonWorkingDay(date time.Time, source string) NonWorkingDay {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return NonWorkingDay{
		Date:   d,
		Year:   d.Year(),
		Month:  int(d.Month()),
		Day:    d.Day(),
		Source: source,
	}
}

// DateKey formats the day as YYYY-MM-DD.
func (d NonWorkingDay) DateKey() string {
	return d.Date.Format("2006-01-02")
}
