package repository

import (
	"errors"
	"time"

	"timeclock/internal/models"

	"gorm.io/gorm"
)

type LeaveBookingRepository interface {
	// Create stores the booking together with its clock events atomically.
	Create(booking *models.LeaveBooking, events []*models.ClockEvent) error
	GetByID(id uint) (*models.LeaveBooking, error)
	GetByUserID(userID uint) ([]models.LeaveBooking, error)
	GetCurrent(userID uint, date time.Time) (*models.LeaveBooking, error)
	CheckPeriodConflict(userID uint, startDate, endDate time.Time) (bool, error)
	Delete(id uint) error
	DeleteByUserID(userID uint) error
}

type GormLeaveBookingRepository struct {
	db *gorm.DB
}

func NewGormLeaveBookingRepository(db *gorm.DB) (LeaveBookingRepository, error) {
	if err := db.AutoMigrate(&models.LeaveBooking{}, &models.ClockEvent{}); err != nil {
		return nil, err
	}
	return &GormLeaveBookingRepository{db: db}, nil
}

func (r *GormLeaveBookingRepository) Create(booking *models.LeaveBooking, events []*models.ClockEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		for _, e := range events {
			e.LeaveBookingID = &booking.ID
			e.Timestamp = e.Timestamp.UTC()
			if err := tx.Create(e).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormLeaveBookingRepository) GetByID(id uint) (*models.LeaveBooking, error) {
	var booking models.LeaveBooking
	err := r.db.First(&booking, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *GormLeaveBookingRepository) GetByUserID(userID uint) ([]models.LeaveBooking, error) {
	var bookings []models.LeaveBooking
	err := r.db.Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *GormLeaveBookingRepository) GetCurrent(userID uint, date time.Time) (*models.LeaveBooking, error) {
	var booking models.LeaveBooking
	err := r.db.Where("user_id = ? AND start_date <= ? AND end_date >= ?",
		userID, date, date).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// CheckPeriodConflict reports whether [startDate, endDate] overlaps any
// existing booking of the user.
func (r *GormLeaveBookingRepository) CheckPeriodConflict(userID uint, startDate, endDate time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.LeaveBooking{}).
		Where("user_id = ? AND start_date <= ? AND end_date >= ?", userID, endDate, startDate).
		Count(&count).Error
	return count > 0, err
}

// Delete removes the booking and the clock events generated for it.
func (r *GormLeaveBookingRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("leave_booking_id = ?", id).Delete(&models.ClockEvent{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.LeaveBooking{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBookingNotFound
		}
		return nil
	})
}

func (r *GormLeaveBookingRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.LeaveBooking{}).Error
}
