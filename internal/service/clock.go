package service

import (
	"errors"
	"fmt"
	"time"

	"timeclock/internal/models"
	"timeclock/internal/repository"
	"timeclock/internal/shift"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Punch is a single clock action as entered by the employee.
type Punch struct {
	At        time.Time
	Location  string
	Latitude  *float64
	Longitude *float64
	Comment   string
	Source    string
}

type ClockService struct {
	events   repository.ClockEventRepository
	users    *repository.UserRepository
	pipeline *Pipeline
	logger   *logrus.Logger
}

func NewClockService(
	events repository.ClockEventRepository,
	users *repository.UserRepository,
	pipeline *Pipeline,
	logger *logrus.Logger,
) *ClockService {
	if logger == nil {
		logger = newLogger()
	}
	return &ClockService{
		events:   events,
		users:    users,
		pipeline: pipeline,
		logger:   logger,
	}
}

// ClockIn records a clock-in unless the user already has an open shift.
func (s *ClockService) ClockIn(userID uint, p Punch) (*models.ClockEvent, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"at":       p.At.Format(time.RFC3339),
		"location": p.Location,
	}).Info("User clocking in")

	open, err := s.Status(userID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		s.logger.WithField("user_id", userID).Warn("User already has an open shift")
		return nil, ErrAlreadyClockedIn
	}

	event := s.newEvent(userID, shift.ActionIn, p)
	if err := s.events.Create(event); err != nil {
		s.logger.WithError(err).Error("Failed to record clock-in")
		return nil, err
	}

	return event, nil
}

// ClockOut closes the user's open shift and returns it.
func (s *ClockService) ClockOut(userID uint, p Punch) (*shift.Shift, error) {
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"at":       p.At.Format(time.RFC3339),
		"location": p.Location,
	}).Info("User clocking out")

	open, err := s.Status(userID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		s.logger.WithField("user_id", userID).Warn("No open shift to close")
		return nil, ErrNotClockedIn
	}
	if p.At.Before(open.ClockIn) {
		return nil, ErrClockOutBeforeIn
	}

	event := s.newEvent(userID, shift.ActionOut, p)
	if err := s.events.Create(event); err != nil {
		s.logger.WithError(err).Error("Failed to record clock-out")
		return nil, err
	}

	shifts, err := s.userShifts(userID, p.At)
	if err != nil {
		return nil, err
	}
	for i := range shifts {
		if shifts[i].ClockIn.Equal(open.ClockIn) && !shifts[i].IsLeaveDay {
			closed := shifts[i]
			s.logger.WithFields(logrus.Fields{
				"user_id":  userID,
				"duration": closed.DurationHours,
			}).Info("Shift closed")
			return &closed, nil
		}
	}

	return nil, fmt.Errorf("closed shift for user %d not found after clock-out", userID)
}

// Status returns the user's open shift, or nil when clocked out.
func (s *ClockService) Status(userID uint) (*shift.Shift, error) {
	shifts, err := s.userShifts(userID, s.pipeline.Now())
	if err != nil {
		return nil, err
	}

	for i := len(shifts) - 1; i >= 0; i-- {
		if shifts[i].IsLeaveDay {
			continue
		}
		if shifts[i].IsOpen() {
			open := shifts[i]
			return &open, nil
		}
		break
	}
	return nil, nil
}

// DeleteHistory removes every clock event of the user, leave events included.
func (s *ClockService) DeleteHistory(userID uint) error {
	return s.events.DeleteByUserID(userID)
}

func (s *ClockService) userShifts(userID uint, ref time.Time) ([]shift.Shift, error) {
	events, err := s.events.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	shifts, _ := s.pipeline.Run(events, ref)
	return shifts[models.UserKey(userID)], nil
}

func (s *ClockService) newEvent(userID uint, action shift.Action, p Punch) *models.ClockEvent {
	source := p.Source
	if source == "" {
		source = models.SourceTelegram
	}
	return &models.ClockEvent{
		UserID:    userID,
		Action:    string(action),
		Timestamp: p.At,
		Location:  p.Location,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Comment:   p.Comment,
		Source:    source,
	}
}

// IngestResult summarises a batch upload.
type IngestResult struct {
	Received    int               `json:"received"`
	Accepted    int               `json:"accepted"`
	Duplicates  int               `json:"duplicates"`
	Rejected    int               `json:"rejected"`
	Diagnostics shift.Diagnostics `json:"diagnostics"`
}

// Ingest stores a batch of raw events, typically flushed from an offline
// queue. Events are not checked against the in/out state: whatever arrives
// is kept and the reconstructor deals with it. Events with a known id are
// skipped as duplicates.
func (s *ClockService) Ingest(batch []shift.RawEvent) (IngestResult, error) {
	result := IngestResult{Received: len(batch)}

	normalized, diag := shift.Normalize(batch, s.pipeline.Options())
	result.Diagnostics = diag
	result.Rejected = diag.Malformed()

	known := map[uint]bool{}
	var events []*models.ClockEvent
	for _, n := range normalized {
		userID, err := models.ParseUserKey(n.UserID)
		if err != nil {
			s.logger.WithField("user_id", n.UserID).Warn("Rejecting event with non-numeric user id")
			result.Rejected++
			continue
		}

		exists, ok := known[userID]
		if !ok {
			user, err := s.users.GetByID(userID)
			if err != nil {
				return result, err
			}
			exists = user != nil
			known[userID] = exists
		}
		if !exists {
			s.logger.WithField("user_id", userID).Warn("Rejecting event for unknown user")
			result.Rejected++
			continue
		}

		if n.ID != "" {
			if _, err := uuid.Parse(n.ID); err != nil {
				s.logger.WithField("id", n.ID).Warn("Rejecting event with invalid id")
				result.Rejected++
				continue
			}
		}

		event := &models.ClockEvent{
			UUID:       n.ID,
			UserID:     userID,
			Action:     string(n.Action),
			Timestamp:  n.Timestamp,
			Location:   n.Location,
			Latitude:   n.Latitude,
			Longitude:  n.Longitude,
			IsLeaveDay: n.IsLeaveDay,
			Comment:    n.Comment,
			Source:     models.SourceAPI,
		}
		if !event.IsValid() {
			s.logger.WithFields(logrus.Fields{
				"user_id":   userID,
				"timestamp": n.Timestamp,
			}).Warn("Rejecting event that cannot be stored")
			result.Rejected++
			continue
		}
		events = append(events, event)
	}

	inserted, err := s.events.CreateBatch(events)
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			return result, fmt.Errorf("ingest: %w", err)
		}
		return result, err
	}

	result.Accepted = inserted
	result.Duplicates = len(events) - inserted

	s.logger.WithFields(logrus.Fields{
		"received":   result.Received,
		"accepted":   result.Accepted,
		"duplicates": result.Duplicates,
		"rejected":   result.Rejected,
	}).Info("Ingested clock events")

	return result, nil
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}
