package repository

import (
	"errors"
	"time"

	"timeclock/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NonWorkingDayRepository interface {
	Create(day *models.NonWorkingDay) error
	GetByDate(date time.Time) (*models.NonWorkingDay, error)
	GetByYearMonth(year, month int) ([]models.NonWorkingDay, error)
	GetBetween(from, to time.Time) ([]models.NonWorkingDay, error)
	GetAll() ([]models.NonWorkingDay, error)
	BulkCreate(days []models.NonWorkingDay) error
	Delete(date time.Time) error
	DeleteAll() error
	IsNonWorkingDay(date time.Time) (bool, error)
}

type GormNonWorkingDayRepository struct {
	db *gorm.DB
}

func NewGormNonWorkingDayRepository(db *gorm.DB) (NonWorkingDayRepository, error) {
	if err := db.AutoMigrate(&models.NonWorkingDay{}); err != nil {
		return nil, err
	}

	return &GormNonWorkingDayRepository{db: db}, nil
}

// dayBounds maps a calendar day to the [start, end) range of its stored rows.
func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func (r *GormNonWorkingDayRepository) Create(day *models.NonWorkingDay) error {
	exists, err := r.IsNonWorkingDay(day.Date)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateHoliday
	}
	return r.db.Create(day).Error
}

// BulkCreate inserts days, silently skipping dates that already exist.
func (r *GormNonWorkingDayRepository) BulkCreate(days []models.NonWorkingDay) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Create(&days).Error
}

// GetByDate returns nil, nil when the date is a working day.
func (r *GormNonWorkingDayRepository) GetByDate(date time.Time) (*models.NonWorkingDay, error) {
	start, end := dayBounds(date)
	var day models.NonWorkingDay
	err := r.db.Where("date >= ? AND date < ?", start, end).First(&day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *GormNonWorkingDayRepository) GetByYearMonth(year, month int) ([]models.NonWorkingDay, error) {
	var days []models.NonWorkingDay
	err := r.db.Where("year = ? AND month = ?", year, month).Order("date ASC").Find(&days).Error
	return days, err
}

// GetBetween returns non-working days in the inclusive calendar range.
func (r *GormNonWorkingDayRepository) GetBetween(from, to time.Time) ([]models.NonWorkingDay, error) {
	start, _ := dayBounds(from)
	_, end := dayBounds(to)
	var days []models.NonWorkingDay
	err := r.db.Where("date >= ? AND date < ?", start, end).Order("date ASC").Find(&days).Error
	return days, err
}

func (r *GormNonWorkingDayRepository) GetAll() ([]models.NonWorkingDay, error) {
	var days []models.NonWorkingDay
	err := r.db.Order("date ASC").Find(&days).Error
	return days, err
}

func (r *GormNonWorkingDayRepository) Delete(date time.Time) error {
	start, end := dayBounds(date)
	return r.db.Where("date >= ? AND date < ?", start, end).Delete(&models.NonWorkingDay{}).Error
}

func (r *GormNonWorkingDayRepository) DeleteAll() error {
	return r.db.Exec("DELETE FROM non_working_days").Error
}

func (r *GormNonWorkingDayRepository) IsNonWorkingDay(date time.Time) (bool, error) {
	start, end := dayBounds(date)
	var count int64
	err := r.db.Model(&models.NonWorkingDay{}).
		Where("date >= ? AND date < ?", start, end).
		Count(&count).Error
	return count > 0, err
}
