package admin

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/duely/duely/internal/notifier"
)

var ErrInternalError = errors.New("internal Server Error")

// NotificationEngine is the slice of the batch engine the admin API needs:
// manual triggering and last-run inspection.
type NotificationEngine interface {
	GenerateAll(ctx context.Context, now time.Time) (notifier.Summary, error)
	LastRun() (notifier.Summary, time.Time, bool)
}

type HealthChecker interface {
	Health() map[string]string
}

type UserPage struct {
	Users []UserSummary `json:"users"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type SystemHealth struct {
	Database  map[string]string `json:"database"`
	LastRun   *LastRunInfo      `json:"last_notification_run,omitempty"`
	CheckedAt time.Time         `json:"checked_at"`
}

type LastRunInfo struct {
	RanAt   time.Time        `json:"ran_at"`
	Summary notifier.Summary `json:"summary"`
}

type Service interface {
	ListUsers(limit, page int) (*UserPage, error)
	SetUserActive(userID string, active bool) error
	SystemHealth() SystemHealth
	TriggerNotificationRun(ctx context.Context) (notifier.Summary, error)
}

type service struct {
	repo   Repository
	engine NotificationEngine
	health HealthChecker
	logger *logrus.Logger
}

func NewAdminService(repo Repository, engine NotificationEngine, health HealthChecker, logger *logrus.Logger) Service {
	return &service{
		repo:   repo,
		engine: engine,
		health: health,
		logger: logger,
	}
}

func (s *service) ListUsers(limit, page int) (*UserPage, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}

	users, err := s.repo.listUsers(limit, (page-1)*limit)
	if err != nil {
		s.logger.Errorf("error listing users: %v", err)
		return nil, ErrInternalError
	}
	total, err := s.repo.countUsers()
	if err != nil {
		s.logger.Errorf("error counting users: %v", err)
		return nil, ErrInternalError
	}
	if users == nil {
		users = []UserSummary{}
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) SetUserActive(userID string, active bool) error {
	err := s.repo.setUserActive(userID, active)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		s.logger.Errorf("error setting user active flag: %v", err)
		return ErrInternalError
	}
	return nil
}

func (s *service) SystemHealth() SystemHealth {
	health := SystemHealth{
		Database:  s.health.Health(),
		CheckedAt: time.Now().UTC(),
	}
	if summary, ranAt, ok := s.engine.LastRun(); ok {
		health.LastRun = &LastRunInfo{RanAt: ranAt, Summary: summary}
	}
	return health
}

func (s *service) TriggerNotificationRun(ctx context.Context) (notifier.Summary, error) {
	s.logger.Info("manual notification run triggered")
	return s.engine.GenerateAll(ctx, time.Now().UTC())
}
