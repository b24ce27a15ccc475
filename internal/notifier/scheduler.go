package notifier

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultRunTimeout = 10 * time.Minute

// Scheduler drives the daily engine run on a cron cadence. The engine itself
// does not mutually exclude overlapping runs, the duplicate guard plus the
// unique index keep concurrent runs from double-creating.
type Scheduler struct {
	cronEngine *cron.Cron
	engine     *Engine
	logger     *logrus.Logger
}

func NewScheduler(engine *Engine, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(),
		engine:     engine,
		logger:     logger,
	}
}

func (s *Scheduler) Start(cronSpec string) error {
	_, err := s.cronEngine.AddFunc(cronSpec, s.run)
	if err != nil {
		return err
	}
	s.cronEngine.Start()
	s.logger.Infof("notification scheduler started with spec %q", cronSpec)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("notification scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	summary, err := s.engine.GenerateAll(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Errorf("scheduled notification run failed: %v", err)
		return
	}
	if summary.RenewalReminders.Failed || summary.OverdueNotifications.Failed || summary.BudgetAlerts.Failed {
		s.logger.Warn("scheduled notification run completed with class failures")
	}
}
