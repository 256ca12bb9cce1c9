package service

import (
	"time"

	"timeclock/internal/models"
	"timeclock/internal/repository"
	"timeclock/pkg/weekends"

	"github.com/sirupsen/logrus"
)

type NonWorkingDayService struct {
	repo repository.NonWorkingDayRepository
}

func NewNonWorkingDayService(repo repository.NonWorkingDayRepository) *NonWorkingDayService {
	return &NonWorkingDayService{repo: repo}
}

// LoadFromJSON replaces the stored calendar with the production calendar file.
func (s *NonWorkingDayService) LoadFromJSON(filePath string) (int, error) {
	calendar, err := weekends.ParseFile(filePath)
	if err != nil {
		return 0, err
	}

	days := make([]models.NonWorkingDay, 0, len(calendar.Days))
	for _, wd := range calendar.Days {
		days = append(days, models.NewNonWorkingDay(wd.Date, "calendar"))
	}

	if err := s.repo.DeleteAll(); err != nil {
		logrus.Warnf("Failed to delete old non-working days: %v", err)
	}

	if err := s.repo.BulkCreate(days); err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"year":     calendar.Year,
		"days":     len(days),
		"workdays": calendar.Stats.Workdays,
	}).Info("Production calendar loaded")

	return len(days), nil
}

// AddDay marks a single date as non-working.
func (s *NonWorkingDayService) AddDay(date time.Time) error {
	day := models.NewNonWorkingDay(date, "manual")
	return s.repo.Create(&day)
}

func (s *NonWorkingDayService) RemoveDay(date time.Time) error {
	return s.repo.Delete(date)
}

func (s *NonWorkingDayService) GetNonWorkingDays() ([]models.NonWorkingDay, error) {
	return s.repo.GetAll()
}

func (s *NonWorkingDayService) GetNonWorkingDaysForMonth(year, month int) ([]models.NonWorkingDay, error) {
	return s.repo.GetByYearMonth(year, month)
}

func (s *NonWorkingDayService) IsNonWorkingDay(date time.Time) (bool, error) {
	return s.repo.IsNonWorkingDay(date)
}

// Predicate loads the days in [from, to] once and returns a lookup that
// matches by calendar date. Lookups outside the range report false.
func (s *NonWorkingDayService) Predicate(from, to time.Time) (func(time.Time) bool, error) {
	days, err := s.repo.GetBetween(from, to)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(days))
	for _, d := range days {
		set[d.DateKey()] = struct{}{}
	}

	return func(day time.Time) bool {
		_, ok := set[day.Format("2006-01-02")]
		return ok
	}, nil
}
