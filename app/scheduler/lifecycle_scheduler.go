// Package scheduler runs the periodic lifecycle sweeps of the registry
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/business-registry/app/services"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SessionCleaner purges expired sessions, reset tokens and old login attempts
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (*businessflow.CleanupResult, error)
}

// AccreditationSweeper expires overdue accreditations and sends renewal reminders
type AccreditationSweeper interface {
	ExpireOverdue(ctx context.Context) (int, error)
	SendExpiryReminders(ctx context.Context) (int, error)
}

// CampaignDispatcher sends newsletter campaigns whose schedule has come due
type CampaignDispatcher interface {
	DispatchDueCampaigns(ctx context.Context) (int, error)
}

// Config holds one cron expression per job. Five-field expressions get a seconds prefix.
type Config struct {
	Enabled          bool
	CleanupSchedule  string
	ExpirySchedule   string
	ReminderSchedule string
	DispatchSchedule string
	JobTimeout       time.Duration
}

const (
	defaultCleanupSchedule  = "0 0 * * * *"
	defaultExpirySchedule   = "0 5 0 * * *"
	defaultReminderSchedule = "0 0 9 * * *"
	defaultDispatchSchedule = "0 * * * * *"
	defaultJobTimeout       = 5 * time.Minute
)

// added to JobTimeout for the job lock TTL
const lockGrace = time.Minute

// LifecycleScheduler runs the sweeps on cron schedules
type LifecycleScheduler struct {
	sessions      SessionCleaner
	accreditation AccreditationSweeper
	campaigns     CampaignDispatcher
	locker        services.KeyLocker
	config        Config
	logger        *logrus.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewLifecycleScheduler creates a new scheduler. locker may be nil for single-instance deployments.
func NewLifecycleScheduler(
	sessions SessionCleaner,
	accreditation AccreditationSweeper,
	campaigns CampaignDispatcher,
	locker services.KeyLocker,
	cfg Config,
	logger *logrus.Logger,
) *LifecycleScheduler {
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = defaultCleanupSchedule
	}
	if cfg.ExpirySchedule == "" {
		cfg.ExpirySchedule = defaultExpirySchedule
	}
	if cfg.ReminderSchedule == "" {
		cfg.ReminderSchedule = defaultReminderSchedule
	}
	if cfg.DispatchSchedule == "" {
		cfg.DispatchSchedule = defaultDispatchSchedule
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}

	return &LifecycleScheduler{
		sessions:      sessions,
		accreditation: accreditation,
		campaigns:     campaigns,
		locker:        locker,
		config:        cfg,
		logger:        logger,
	}
}

func withSeconds(spec string) string {
	if len(strings.Fields(spec)) == 5 {
		return "0 " + spec
	}
	return spec
}

// Start registers every job and starts the cron runner. The returned function stops it.
func (s *LifecycleScheduler) Start(parent context.Context) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.Stop, nil
	}
	if !s.config.Enabled {
		s.logger.Info("Lifecycle scheduler is disabled")
		return func() {}, nil
	}

	s.cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"session_cleanup", s.config.CleanupSchedule, s.cleanupSessions},
		{"accreditation_expiry", s.config.ExpirySchedule, s.expireAccreditations},
		{"accreditation_reminders", s.config.ReminderSchedule, s.sendReminders},
		{"newsletter_dispatch", s.config.DispatchSchedule, s.dispatchCampaigns},
	}

	for _, j := range jobs {
		if _, err := s.cron.AddFunc(withSeconds(j.spec), func() { s.runJob(parent, j.name, j.run) }); err != nil {
			s.logger.WithError(err).WithField("job", j.name).Error("Failed to schedule job")
			return nil, err
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.WithFields(logrus.Fields{
		"cleanup":   s.config.CleanupSchedule,
		"expiry":    s.config.ExpirySchedule,
		"reminders": s.config.ReminderSchedule,
		"dispatch":  s.config.DispatchSchedule,
	}).Info("Lifecycle scheduler started")

	return s.Stop, nil
}

// Stop waits for running jobs to finish
func (s *LifecycleScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Lifecycle scheduler stopped")
}

// IsRunning returns whether the cron runner is active
func (s *LifecycleScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunAll executes every sweep once, in order, on the calling goroutine
func (s *LifecycleScheduler) RunAll(ctx context.Context) {
	s.runJob(ctx, "session_cleanup", s.cleanupSessions)
	s.runJob(ctx, "accreditation_expiry", s.expireAccreditations)
	s.runJob(ctx, "accreditation_reminders", s.sendReminders)
	s.runJob(ctx, "newsletter_dispatch", s.dispatchCampaigns)
}

func (s *LifecycleScheduler) runJob(parent context.Context, name string, run func(context.Context) error) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.config.JobTimeout)
	defer cancel()

	log := s.logger.WithField("job", name)

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "scheduler:"+name, s.config.JobTimeout+lockGrace, 0)
		if errors.Is(err, services.ErrLockBusy) {
			log.Debug("Job already running on another instance")
			return
		}
		if err != nil {
			log.WithError(err).Warn("Failed to acquire job lock")
			return
		}
		defer release()
	}

	start := time.Now()
	if err := run(ctx); err != nil {
		log.WithError(err).WithField("duration", time.Since(start).String()).Error("Job failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Debug("Job completed")
}

func (s *LifecycleScheduler) cleanupSessions(ctx context.Context) error {
	if s.sessions == nil {
		return nil
	}
	result, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if result.Sessions+result.PasswordReset+result.LoginAttempts > 0 {
		s.logger.WithFields(logrus.Fields{
			"sessions":        result.Sessions,
			"password_resets": result.PasswordReset,
			"login_attempts":  result.LoginAttempts,
		}).Info("Purged expired auth records")
	}
	return nil
}

func (s *LifecycleScheduler) expireAccreditations(ctx context.Context) error {
	if s.accreditation == nil {
		return nil
	}
	n, err := s.accreditation.ExpireOverdue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.WithField("expired", n).Info("Expired overdue accreditations")
	}
	return nil
}

func (s *LifecycleScheduler) sendReminders(ctx context.Context) error {
	if s.accreditation == nil {
		return nil
	}
	n, err := s.accreditation.SendExpiryReminders(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.WithField("reminded", n).Info("Sent accreditation expiry reminders")
	}
	return nil
}

func (s *LifecycleScheduler) dispatchCampaigns(ctx context.Context) error {
	if s.campaigns == nil {
		return nil
	}
	n, err := s.campaigns.DispatchDueCampaigns(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.WithField("campaigns", n).Info("Dispatched due newsletter campaigns")
	}
	return nil
}
