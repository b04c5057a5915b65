package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/chirpolly/internal/logger"
	"github.com/example/chirpolly/pkg/models"
)

// Default notification window (UTC hours, inclusive)
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Notifier sends review reminders.
type Notifier interface {
	SendReminder(ctx context.Context, learnerID int64, due int) error
}

// Learners lists who wants a reminder at a given hour.
type Learners interface {
	ListForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// DueCounter counts a learner's due items.
type DueCounter interface {
	DueCount(ctx context.Context, learnerID int64) (int, error)
}

// Config holds the reminder window.
type Config struct {
	StartHour int
	EndHour   int
	// Cap for learners who have no words-per-day preference
	DefaultWordsPerDay int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	learners  Learners
	due       DueCounter
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(cfg Config, notifier Notifier, learners Learners, due DueCounter, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		learners:  learners,
		due:       due,
		cfg:       cfg,
		log:       log.With("service", "scheduler"),
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks. Jobs stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	// Hourly check for learners who need notifications
	_, err := s.scheduler.Every(1).Hour().StartAt(nextHour(s.now())).Do(func() {
		sent, err := s.CheckAndSendReminders(ctx)
		if err != nil {
			s.log.Error("reminder run failed", "error", err)
			return
		}
		s.log.Info("reminder run finished", "sent", sent)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// CheckAndSendReminders notifies every learner whose reminder hour is now and
// who has due items. It returns the number of reminders sent. Failures for
// one learner do not stop the others.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) (int, error) {
	currentHour := s.now().UTC().Hour()
	if currentHour < s.cfg.StartHour || currentHour > s.cfg.EndHour {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", currentHour, "start", s.cfg.StartHour, "end", s.cfg.EndHour)
		return 0, nil
	}

	users, err := s.learners.ListForNotification(ctx, currentHour)
	if err != nil {
		return 0, fmt.Errorf("failed to get users for notification: %w", err)
	}

	sent := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		limit := user.WordsPerDay
		if limit <= 0 {
			limit = s.cfg.DefaultWordsPerDay
		}
		ok, err := s.remind(ctx, user.ID, limit)
		if err != nil {
			s.log.Warn("reminder failed", "learner_id", user.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// RunManualCheck sends a reminder to one learner if anything is due,
// without the window or the daily cap.
func (s *Scheduler) RunManualCheck(ctx context.Context, learnerID int64) error {
	_, err := s.remind(ctx, learnerID, 0)
	return err
}

// remind sends a reminder for up to limit items (no cap when limit is 0).
func (s *Scheduler) remind(ctx context.Context, learnerID int64, limit int) (bool, error) {
	count, err := s.due.DueCount(ctx, learnerID)
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	if limit > 0 && count > limit {
		count = limit
	}
	if err := s.notifier.SendReminder(ctx, learnerID, count); err != nil {
		return false, err
	}
	return true, nil
}

func nextHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour).Add(time.Hour)
}
