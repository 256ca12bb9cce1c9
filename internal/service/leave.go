package service

import (
	"errors"
	"fmt"
	"time"

	"timeclock/internal/models"
	"timeclock/internal/repository"
	"timeclock/internal/shift"

	"github.com/sirupsen/logrus"
)

// Synthetic leave events bracket one minute at this local time.
const (
	leaveStartHour = 9
	maxLeaveDays   = 366
)

type LeaveService struct {
	bookings repository.LeaveBookingRepository
	days     *NonWorkingDayService
	pipeline *Pipeline
	logger   *logrus.Logger
}

func NewLeaveService(
	bookings repository.LeaveBookingRepository,
	days *NonWorkingDayService,
	pipeline *Pipeline,
	logger *logrus.Logger,
) *LeaveService {
	if logger == nil {
		logger = newLogger()
	}
	return &LeaveService{
		bookings: bookings,
		days:     days,
		pipeline: pipeline,
		logger:   logger,
	}
}

// BookLeave books [from, to] (calendar days, inclusive) and writes one leave
// in/out pair per working day. Vacations can only start today or later;
// sick leave and days off may be booked retroactively.
func (s *LeaveService) BookLeave(userID uint, from, to time.Time, leaveType, comment string) (*models.LeaveBooking, error) {
	if leaveType == "" {
		leaveType = models.LeaveTypeVacation
	}
	if !models.IsValidLeaveType(leaveType) {
		return nil, ErrInvalidLeaveType
	}

	loc := s.pipeline.Location()
	from = calendarDay(from, loc)
	to = calendarDay(to, loc)

	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidLeaveRange)
	}
	if int(to.Sub(from).Hours()/24)+1 > maxLeaveDays {
		return nil, fmt.Errorf("%w: more than %d days", ErrInvalidLeaveRange, maxLeaveDays)
	}
	if leaveType == models.LeaveTypeVacation && from.Before(calendarDay(s.pipeline.Now(), loc)) {
		return nil, fmt.Errorf("%w: vacation can only be booked for future dates", ErrInvalidLeaveRange)
	}

	start, end := storedDate(from), storedDate(to)
	conflict, err := s.bookings.CheckPeriodConflict(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check leave conflicts: %w", err)
	}
	if conflict {
		return nil, ErrLeaveConflict
	}

	var events []*models.ClockEvent
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		off, err := s.days.IsNonWorkingDay(day)
		if err != nil {
			s.logger.WithError(err).Warnf("Failed to check if %s is a non-working day", day.Format("2006-01-02"))
		} else if off {
			continue
		}

		in := time.Date(day.Year(), day.Month(), day.Day(), leaveStartHour, 0, 0, 0, loc)
		events = append(events,
			leaveEvent(userID, shift.ActionIn, in, leaveType, comment),
			leaveEvent(userID, shift.ActionOut, in.Add(time.Minute), leaveType, comment),
		)
	}
	if len(events) == 0 {
		return nil, ErrNoWorkingDays
	}

	booking := &models.LeaveBooking{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Type:      leaveType,
		Comment:   comment,
	}
	if err := s.bookings.Create(booking, events); err != nil {
		return nil, fmt.Errorf("create leave booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"user_id":    userID,
		"type":       leaveType,
		"days":       len(events) / 2,
	}).Info("Leave booked")

	return booking, nil
}

// CancelLeave removes a booking owned by userID together with its events.
func (s *LeaveService) CancelLeave(userID, bookingID uint) error {
	booking, err := s.bookings.GetByID(bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return ErrLeaveNotFound
	}
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return ErrForbidden
	}

	if err := s.bookings.Delete(bookingID); err != nil {
		return fmt.Errorf("delete leave booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"user_id":    userID,
	}).Info("Leave cancelled")
	return nil
}

// DeleteUserLeave drops the user's bookings. Their events go with the clock history.
func (s *LeaveService) DeleteUserLeave(userID uint) error {
	return s.bookings.DeleteByUserID(userID)
}

func (s *LeaveService) GetUserLeave(userID uint) ([]models.LeaveBooking, error) {
	return s.bookings.GetByUserID(userID)
}

// GetCurrentLeave returns the booking covering today, or nil.
func (s *LeaveService) GetCurrentLeave(userID uint) (*models.LeaveBooking, error) {
	return s.bookings.GetCurrent(userID, storedDate(calendarDay(s.pipeline.Now(), s.pipeline.Location())))
}

func leaveEvent(userID uint, action shift.Action, at time.Time, leaveType, comment string) *models.ClockEvent {
	if comment == "" {
		comment = leaveType
	}
	return &models.ClockEvent{
		UserID:     userID,
		Action:     string(action),
		Timestamp:  at,
		IsLeaveDay: true,
		Comment:    comment,
		Source:     models.SourceLeave,
	}
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// storedDate keeps the calendar date but pins it to UTC for the date columns.
func storedDate(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
