package service

import (
	"time"

	"timeclock/internal/export"
	"timeclock/internal/models"
	"timeclock/internal/repository"
	"timeclock/internal/shift"

	"github.com/sirupsen/logrus"
)

// AnomalyScope limits which shifts the anomaly check looks at.
type AnomalyScope string

const (
	// ScopeToday covers shifts started today plus every open shift.
	ScopeToday AnomalyScope = "today"
	ScopeAll   AnomalyScope = "all"
)

type UserTotals struct {
	User   *models.User `json:"user"`
	Totals shift.Totals `json:"totals"`
}

// ReportService is the read side: every method loads events and reruns the
// pipeline.
type ReportService struct {
	events   repository.ClockEventRepository
	users    *repository.UserRepository
	days     *NonWorkingDayService
	pipeline *Pipeline
	logger   *logrus.Logger
}

func NewReportService(
	events repository.ClockEventRepository,
	users *repository.UserRepository,
	days *NonWorkingDayService,
	pipeline *Pipeline,
	logger *logrus.Logger,
) *ReportService {
	if logger == nil {
		logger = newLogger()
	}
	return &ReportService{
		events:   events,
		users:    users,
		days:     days,
		pipeline: pipeline,
		logger:   logger,
	}
}

func (s *ReportService) Location() *time.Location {
	return s.pipeline.Location()
}

func (s *ReportService) Policy() shift.Policy {
	return s.pipeline.Policy()
}

func (s *ReportService) Now() time.Time {
	return s.pipeline.Now()
}

func (s *ReportService) userShifts(userID uint, ref time.Time) ([]shift.Shift, shift.Diagnostics, error) {
	events, err := s.events.GetByUserID(userID)
	if err != nil {
		return nil, shift.Diagnostics{}, err
	}
	shifts, diag := s.pipeline.Run(events, ref)
	s.logDiagnostics(diag, logrus.Fields{"user_id": userID})
	return shifts[models.UserKey(userID)], diag, nil
}

func (s *ReportService) allShifts(ref time.Time) (map[string][]shift.Shift, shift.Diagnostics, error) {
	events, err := s.events.GetAll()
	if err != nil {
		return nil, shift.Diagnostics{}, err
	}
	shifts, diag := s.pipeline.Run(events, ref)
	s.logDiagnostics(diag, logrus.Fields{"scope": "all"})
	return shifts, diag, nil
}

func (s *ReportService) logDiagnostics(d shift.Diagnostics, fields logrus.Fields) {
	if d.Clean() {
		return
	}
	s.logger.WithFields(fields).WithFields(logrus.Fields{
		"malformed":  d.Malformed(),
		"unpaired":   d.Unpaired(),
		"negative":   d.NegativeDurations,
		"autoclosed": d.AutoClosedIns,
	}).Debug("Pipeline dropped or flagged events")
}

// Shifts returns the user's shifts ordered by clock-in.
func (s *ReportService) Shifts(userID uint) ([]shift.Shift, shift.Diagnostics, error) {
	return s.userShifts(userID, s.pipeline.Now())
}

func (s *ReportService) Totals(userID uint) (shift.Totals, error) {
	ref := s.pipeline.Now()
	shifts, _, err := s.userShifts(userID, ref)
	if err != nil {
		return shift.Totals{}, err
	}
	return shift.Aggregate(shifts, ref, s.pipeline.Location()), nil
}

// AllTotals returns totals for every registered user, in user id order, and
// their sum.
func (s *ReportService) AllTotals() ([]UserTotals, shift.Totals, error) {
	ref := s.pipeline.Now()
	users, err := s.users.GetAll()
	if err != nil {
		return nil, shift.Totals{}, err
	}
	shifts, _, err := s.allShifts(ref)
	if err != nil {
		return nil, shift.Totals{}, err
	}

	perUser, _ := shift.AggregateByUser(shifts, ref, s.pipeline.Location())

	rows := make([]UserTotals, 0, len(users))
	var sum shift.Totals
	for _, u := range users {
		t := perUser[u.Key()]
		rows = append(rows, UserTotals{User: u, Totals: t})
		sum = sum.Add(t)
	}
	return rows, sum, nil
}

func (s *ReportService) Anomalies(scope AnomalyScope) (shift.Anomalies, error) {
	ref := s.pipeline.Now()
	shifts, _, err := s.allShifts(ref)
	if err != nil {
		return shift.Anomalies{}, err
	}

	if scope == ScopeToday {
		shifts = todayOrOpen(shifts, ref, s.pipeline.Location())
	}
	return shift.DetectAnomalies(shifts, s.pipeline.Policy()), nil
}

func todayOrOpen(shifts map[string][]shift.Shift, ref time.Time, loc *time.Location) map[string][]shift.Shift {
	today := shift.StartedOn(shifts, ref, loc)
	for userID, list := range shifts {
		started := map[string]bool{}
		for _, s := range today[userID] {
			started[s.Key()] = true
		}
		for _, s := range list {
			if s.IsOpen() && !started[s.Key()] {
				today[userID] = append(today[userID], s)
			}
		}
	}
	return today
}

// Diagnostics reports data-quality counters over the whole event store.
func (s *ReportService) Diagnostics() (shift.Diagnostics, error) {
	_, diag, err := s.allShifts(s.pipeline.Now())
	return diag, err
}

// ExportRows returns one row per day of r for the user.
func (s *ReportService) ExportRows(userID uint, r shift.DateRange) ([]shift.ExportRow, error) {
	shifts, _, err := s.userShifts(userID, s.pipeline.Now())
	if err != nil {
		return nil, err
	}
	opts, err := s.exportOptions(r)
	if err != nil {
		return nil, err
	}
	return shift.ToExportRows(shifts, r, opts), nil
}

// Timesheets builds export sheets for the given users, or every user when
// userIDs is empty.
func (s *ReportService) Timesheets(userIDs []uint, r shift.DateRange) ([]export.Timesheet, error) {
	var users []*models.User
	if len(userIDs) == 0 {
		all, err := s.users.GetAll()
		if err != nil {
			return nil, err
		}
		users = all
	} else {
		found, err := s.users.GetByIDs(userIDs)
		if err != nil {
			return nil, err
		}
		if len(found) != len(uniqueIDs(userIDs)) {
			return nil, ErrUserNotFound
		}
		users = found
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	events, err := s.events.GetByUserIDs(ids)
	if err != nil {
		return nil, err
	}
	shifts, _ := s.pipeline.Run(events, s.pipeline.Now())

	opts, err := s.exportOptions(r)
	if err != nil {
		return nil, err
	}

	sheets := make([]export.Timesheet, 0, len(users))
	for _, u := range users {
		sheets = append(sheets, export.Timesheet{
			Person: export.Person{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email},
			Rows:   shift.ToExportRows(shifts[u.Key()], r, opts),
		})
	}

	s.logger.WithFields(logrus.Fields{
		"users": len(users),
		"from":  r.From.Format("2006-01-02"),
		"to":    r.To.Format("2006-01-02"),
	}).Info("Timesheets built")

	return sheets, nil
}

func (s *ReportService) exportOptions(r shift.DateRange) (shift.ExportOptions, error) {
	opts := shift.ExportOptions{Location: s.pipeline.Location()}
	if s.days == nil {
		return opts, nil
	}

	from, to := r.From, r.To
	if to.Before(from) {
		from, to = to, from
	}
	isOff, err := s.days.Predicate(from.In(opts.Location), to.In(opts.Location))
	if err != nil {
		return opts, err
	}
	opts.IsNonWorkingDay = isOff
	return opts, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
