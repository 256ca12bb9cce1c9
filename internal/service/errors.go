package service

import (
	"errors"

	"timeclock/internal/repository"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrEmptyName         = errors.New("first name must not be empty")
	ErrForbidden         = errors.New("access denied: admins only")
	ErrAlreadyClockedIn  = errors.New("already clocked in")
	ErrNotClockedIn      = errors.New("not clocked in")
	ErrClockOutBeforeIn  = errors.New("clock-out is earlier than the open clock-in")
	ErrInvalidLeaveRange = errors.New("invalid leave range")
	ErrInvalidLeaveType  = errors.New("invalid leave type")
	ErrLeaveConflict     = errors.New("leave overlaps an existing booking")
	ErrNoWorkingDays     = errors.New("leave range has no working days")
	ErrLeaveNotFound     = errors.New("leave booking not found")
	ErrInvalidEvent      = repository.ErrInvalidEvent
)
