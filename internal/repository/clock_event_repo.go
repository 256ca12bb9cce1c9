package repository

import (
	"errors"

	"timeclock/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClockEventRepository interface {
	Create(event *models.ClockEvent) error
	CreateBatch(events []*models.ClockEvent) (int, error)
	GetByUUID(uuid string) (*models.ClockEvent, error)
	GetLastByUserID(userID uint) (*models.ClockEvent, error)
	GetByUserID(userID uint) ([]*models.ClockEvent, error)
	GetByUserIDs(userIDs []uint) ([]*models.ClockEvent, error)
	GetAll() ([]*models.ClockEvent, error)
	CountByUserID(userID uint) (int64, error)
	DeleteByLeaveBookingID(bookingID uint) error
	DeleteByUserID(userID uint) error
}

type GormClockEventRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormClockEventRepository(db *gorm.DB, logger *logrus.Logger) (*GormClockEventRepository, error) {
	if logger == nil {
		logger = newLogger()
	}

	if err := db.AutoMigrate(&models.ClockEvent{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate clock_events table")
		return nil, err
	}

	logger.Info("Clock event repository initialized")

	return &GormClockEventRepository{
		db:     db,
		logger: logger,
	}, nil
}

// Create stores a single event. A second event with the same UUID is
// rejected with ErrDuplicateEvent.
func (r *GormClockEventRepository) Create(event *models.ClockEvent) error {
	if !event.IsValid() {
		r.logger.WithFields(logrus.Fields{
			"user_id": event.UserID,
			"action":  event.Action,
		}).Warn("Invalid clock event data")
		return ErrInvalidEvent
	}

	event.Timestamp = event.Timestamp.UTC()
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create clock event")
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.logger.WithField("uuid", event.UUID).Debug("Clock event already recorded")
		return ErrDuplicateEvent
	}

	r.logger.WithFields(logrus.Fields{
		"id":      event.ID,
		"uuid":    event.UUID,
		"user_id": event.UserID,
		"action":  event.Action,
		"leave":   event.IsLeaveDay,
	}).Info("Clock event recorded")

	return nil
}

// CreateBatch stores events in one transaction, skipping duplicates.
// It returns how many rows were actually inserted.
func (r *GormClockEventRepository) CreateBatch(events []*models.ClockEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			if !event.IsValid() {
				return ErrInvalidEvent
			}
			event.Timestamp = event.Timestamp.UTC()
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "uuid"}},
				DoNothing: true,
			}).Create(event)
			if result.Error != nil {
				return result.Error
			}
			inserted += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to create clock event batch")
		return 0, err
	}

	r.logger.WithFields(logrus.Fields{
		"received": len(events),
		"inserted": inserted,
	}).Info("Clock event batch recorded")

	return inserted, nil
}

func (r *GormClockEventRepository) GetByUUID(uuid string) (*models.ClockEvent, error) {
	var event models.ClockEvent
	result := r.db.Where("uuid = ?", uuid).First(&event)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get clock event by UUID")
		return nil, result.Error
	}

	return &event, nil
}

// GetLastByUserID returns the user's latest non-leave event, or nil.
func (r *GormClockEventRepository) GetLastByUserID(userID uint) (*models.ClockEvent, error) {
	var event models.ClockEvent
	result := r.db.Where("user_id = ? AND is_leave_day = ?", userID, false).
		Order("timestamp DESC").
		Order("id DESC").
		First(&event)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		r.logger.WithField("user_id", userID).Debug("No clock events found")
		return nil, nil
	}
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get last clock event")
		return nil, result.Error
	}

	return &event, nil
}

// GetByUserID returns every event of the user in insertion order.
func (r *GormClockEventRepository) GetByUserID(userID uint) ([]*models.ClockEvent, error) {
	var events []*models.ClockEvent
	result := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&events)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get clock events by user ID")
		return nil, result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"count":   len(events),
	}).Debug("Retrieved clock events by user ID")

	return events, nil
}

func (r *GormClockEventRepository) GetByUserIDs(userIDs []uint) ([]*models.ClockEvent, error) {
	var events []*models.ClockEvent
	if len(userIDs) == 0 {
		return events, nil
	}
	result := r.db.Where("user_id IN ?", userIDs).Order("id ASC").Find(&events)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get clock events by user IDs")
		return nil, result.Error
	}
	return events, nil
}

func (r *GormClockEventRepository) GetAll() ([]*models.ClockEvent, error) {
	var events []*models.ClockEvent
	result := r.db.Order("id ASC").Find(&events)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to get clock events")
		return nil, result.Error
	}
	return events, nil
}

func (r *GormClockEventRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ClockEvent{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *GormClockEventRepository) DeleteByLeaveBookingID(bookingID uint) error {
	result := r.db.Where("leave_booking_id = ?", bookingID).Delete(&models.ClockEvent{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete leave clock events")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"booking_id":    bookingID,
		"rows_affected": result.RowsAffected,
	}).Info("Leave clock events deleted")

	return nil
}

func (r *GormClockEventRepository) DeleteByUserID(userID uint) error {
	result := r.db.Where("user_id = ?", userID).Delete(&models.ClockEvent{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete user clock events")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"rows_affected": result.RowsAffected,
	}).Info("User clock events deleted")

	return nil
}
