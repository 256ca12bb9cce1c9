package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timeclock/internal/shift"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a text message to a chat.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// AlertService periodically checks today's anomalies and tells every admin
// about each one once.
type AlertService struct {
	reports  *ReportService
	users    *UserService
	notifier Notifier
	interval time.Duration
	logger   *logrus.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewAlertService(reports *ReportService, users *UserService, notifier Notifier, interval time.Duration, logger *logrus.Logger) *AlertService {
	if logger == nil {
		logger = newLogger()
	}
	return &AlertService{
		reports:  reports,
		users:    users,
		notifier: notifier,
		interval: interval,
		logger:   logger,
		seen:     map[string]struct{}{},
	}
}

// Run checks immediately and then on every tick until ctx is cancelled.
func (s *AlertService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("Anomaly alerts started")

	for {
		if _, err := s.Check(); err != nil {
			s.logger.WithError(err).Error("Anomaly check failed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Anomaly alerts stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check sends alerts for anomalies not reported before and returns how many
// new anomalies it found. Anomalies that disappear are forgotten, so they
// alert again if they come back. New anomalies that reached no admin are
// retried on the next check.
func (s *AlertService) Check() (int, error) {
	anomalies, err := s.reports.Anomalies(ScopeToday)
	if err != nil {
		return 0, err
	}

	current := map[string]struct{}{}
	freshKeys := map[string]struct{}{}
	var fresh shift.Anomalies

	s.mu.Lock()
	collect := func(kind string, list []shift.Shift, dst *[]shift.Shift) {
		for _, sh := range list {
			key := kind + ":" + sh.Key()
			current[key] = struct{}{}
			if _, ok := s.seen[key]; !ok {
				freshKeys[key] = struct{}{}
				*dst = append(*dst, sh)
			}
		}
	}
	collect("unclosed", anomalies.Unclosed, &fresh.Unclosed)
	collect("long", anomalies.Long, &fresh.Long)
	collect("negative", anomalies.Negative, &fresh.Negative)
	s.mu.Unlock()

	if fresh.Empty() {
		s.remember(current)
		return 0, nil
	}

	admins, err := s.users.GetAdmins()
	if err != nil {
		return fresh.Count(), fmt.Errorf("load admins: %w", err)
	}
	names, err := s.users.NamesByKey()
	if err != nil {
		return fresh.Count(), fmt.Errorf("load user names: %w", err)
	}

	text := FormatAnomalies(fresh, names, s.reports.Location())
	delivered := 0
	for _, admin := range admins {
		if err := s.notifier.Notify(admin.ChatID, text); err != nil {
			s.logger.WithError(err).WithField("chat_id", admin.ChatID).Warn("Failed to deliver anomaly alert")
			continue
		}
		delivered++
	}

	if delivered == 0 {
		for key := range freshKeys {
			delete(current, key)
		}
		s.remember(current)
		if len(admins) == 0 {
			s.logger.WithField("anomalies", fresh.Count()).Warn("No admins to alert")
			return fresh.Count(), nil
		}
		return fresh.Count(), fmt.Errorf("anomaly alert reached none of %d admins", len(admins))
	}

	s.remember(current)

	s.logger.WithFields(logrus.Fields{
		"anomalies": fresh.Count(),
		"admins":    delivered,
	}).Info("Anomaly alerts sent")

	return fresh.Count(), nil
}

func (s *AlertService) remember(keys map[string]struct{}) {
	s.mu.Lock()
	s.seen = keys
	s.mu.Unlock()
}
