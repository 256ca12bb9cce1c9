package models

import (
	"strconv"
	"time"

	"timeclock/internal/shift"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event sources
const (
	SourceTelegram = "telegram"
	SourceAPI      = "api"
	SourceLeave    = "leave"
)

// ClockEvent is one stored clock action. Shifts are never stored; they are
// rebuilt from these rows on every read.
type ClockEvent struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	UUID           string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	UserID         uint      `gorm:"not null;index:idx_clock_events_user_time" json:"user_id"`
	Action         string    `gorm:"type:varchar(3);not null" json:"action"`
	Timestamp      time.Time `gorm:"not null;index:idx_clock_events_user_time;index" json:"timestamp"`
	Location       string    `json:"location,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	IsLeaveDay     bool      `gorm:"not null;default:false" json:"is_leave_day"`
	LeaveBookingID *uint     `gorm:"index" json:"leave_booking_id,omitempty"`
	Source         string    `gorm:"type:varchar(20);not null;default:'telegram'" json:"source"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClockEvent) TableName() string {
	return "clock_events"
}

// BeforeCreate assigns a UUID to events created without one.
func (e *ClockEvent) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == "" {
		e.UUID = uuid.NewString()
	}
	return nil
}

// IsValid reports whether the row can be stored.
func (e *ClockEvent) IsValid() bool {
	if e.UserID == 0 {
		return false
	}
	if e.Timestamp.IsZero() {
		return false
	}
	if e.Action != string(shift.ActionIn) && e.Action != string(shift.ActionOut) {
		return false
	}
	if e.UUID != "" {
		if _, err := uuid.Parse(e.UUID); err != nil {
			return false
		}
	}
	return true
}

// ToRaw converts the row into the pipeline's input shape.
func (e *ClockEvent) ToRaw() shift.RawEvent {
	raw := shift.RawEvent{
		ID:         e.UUID,
		UserID:     UserKey(e.UserID),
		Action:     e.Action,
		Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
		Location:   e.Location,
		IsLeaveDay: e.IsLeaveDay,
		Comment:    e.Comment,
	}
	if e.Latitude != nil {
		raw.Latitude = *e.Latitude
	}
	if e.Longitude != nil {
		raw.Longitude = *e.Longitude
	}
	return raw
}

// ToRawEvents converts a slice of rows, keeping their order.
func ToRawEvents(events []*ClockEvent) []shift.RawEvent {
	raw := make([]shift.RawEvent, 0, len(events))
	for _, e := range events {
		raw = append(raw, e.ToRaw())
	}
	return raw
}

// UserKey is the opaque user id the pipeline works with.
func UserKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseUserKey reverses UserKey.
func ParseUserKey(key string) (uint, error) {
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
