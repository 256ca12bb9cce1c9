package models

import "time"

// LeaveBooking is an administrative absence; each day in it is backed by a
// synthetic leave in/out pair of clock events.
type LeaveBooking struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
	Type      string    `gorm:"type:varchar(20);not null" json:"type"` // vacation, sick_leave, day_off
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Events []ClockEvent `gorm:"foreignKey:LeaveBookingID;constraint:OnDelete:CASCADE" json:"-"`
}

func (LeaveBooking) TableName() string {
	return "leave_bookings"
}

const (
	LeaveTypeVacation  = "vacation"
	LeaveTypeSickLeave = "sick_leave"
	LeaveTypeDayOff    = "day_off"
)

// IsValidLeaveType reports whether t is a known leave type.
func IsValidLeaveType(t string) bool {
	switch t {
	case LeaveTypeVacation, LeaveTypeSickLeave, LeaveTypeDayOff:
		return true
	}
	return false
}

// Days returns the number of calendar days covered by the booking.
func (b *LeaveBooking) Days() int {
	return int(b.EndDate.Sub(b.StartDate).Hours()/24) + 1
}
