package repository

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEvent   = errors.New("clock event already recorded")
	ErrInvalidEvent     = errors.New("invalid clock event")
	ErrBookingNotFound  = errors.New("leave booking not found")
	ErrDuplicateHoliday = errors.New("non-working day already exists")
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}
