package service

import (
	"testing"
	"time"

	"timeclock/internal/models"
	"timeclock/internal/repository"
	"timeclock/internal/shift"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	now time.Time

	users    *UserService
	clock    *ClockService
	leave    *LeaveService
	reports  *ReportService
	calendar *NonWorkingDayService
	logger   *logrus.Logger
}

func newFixture(t *testing.T, now time.Time, policy shift.Policy) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	log, _ := logtest.NewNullLogger()

	userRepo, err := repository.NewUserRepository(db)
	require.NoError(t, err)
	eventRepo, err := repository.NewGormClockEventRepository(db, log)
	require.NoError(t, err)
	bookingRepo, err := repository.NewGormLeaveBookingRepository(db)
	require.NoError(t, err)
	dayRepo, err := repository.NewGormNonWorkingDayRepository(db)
	require.NoError(t, err)

	f := &fixture{now: now, logger: log}
	pipeline := NewPipeline(shift.Options{
		Policy:   policy,
		Location: time.UTC,
		Now:      func() time.Time { return f.now },
		Logger:   log,
	})

	f.users = NewUserService(&userRepo)
	f.calendar = NewNonWorkingDayService(dayRepo)
	f.clock = NewClockService(eventRepo, &userRepo, pipeline, log)
	f.leave = NewLeaveService(bookingRepo, f.calendar, pipeline, log)
	f.reports = NewReportService(eventRepo, &userRepo, f.calendar, pipeline, log)
	return f
}

func (f *fixture) user(t *testing.T, chatID int64, first, last string) *models.User {
	t.Helper()
	u, err := f.users.CreateUser(chatID, Profile{FirstName: first, LastName: last, Email: first + "@example.com"})
	require.NoError(t, err)
	return u
}

func (f *fixture) punch(t *testing.T, userID uint, action shift.Action, at string) {
	t.Helper()
	_, err := f.clock.Ingest([]shift.RawEvent{{UserID: models.UserKey(userID), Action: string(action), Timestamp: at}})
	require.NoError(t, err)
}

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}
