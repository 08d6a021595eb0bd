package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/config"
	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/service/reporting"
	"github.com/mamadbah2/guardops/internal/service/whatsapp"
)

const jobTimeout = 2 * time.Minute

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	reportingSvc *reporting.Service
	messagingSvc whatsapp.MessagingService
	cfg          config.Config
	logger       *zap.Logger
	now          func() time.Time
}

// NewScheduler creates a new scheduler instance. messagingSvc may be nil, in
// which case the weekly digest is only logged.
func NewScheduler(cfg config.Config, reportingSvc *reporting.Service, messagingSvc whatsapp.MessagingService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(cfg.Location())),
		reportingSvc: reportingSvc,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("snapshot_schedule", s.cfg.Reporting.SnapshotSchedule),
		zap.String("digest_schedule", s.cfg.Reporting.DigestSchedule))

	if _, err := s.cron.AddFunc(s.cfg.Reporting.SnapshotSchedule, s.saveSnapshot); err != nil {
		return fmt.Errorf("schedule monthly snapshot: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.Reporting.DigestSchedule, s.sendWeeklyDigest); err != nil {
		return fmt.Errorf("schedule weekly digest: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// saveSnapshot freezes the month that just ended.
func (s *Scheduler) saveSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	month := models.StartOfMonth(s.now().In(s.cfg.Location())).AddDate(0, -1, 0)
	snap, err := s.reportingSvc.SaveSnapshot(ctx, month)
	if err != nil {
		s.logger.Error("failed to save monthly snapshot", zap.Error(err))
		return
	}

	s.logger.Info("monthly snapshot saved",
		zap.Time("month", snap.Month),
		zap.String("balance", snap.Balance),
		zap.Int("shifts", snap.ShiftCount))
}

// sendWeeklyDigest sends next week's schedule overview to the manager.
func (s *Scheduler) sendWeeklyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	digest := s.reportingSvc.WeeklyDigest(nextMonday(s.now().In(s.cfg.Location())))

	if s.messagingSvc == nil || s.cfg.WhatsApp.ManagerNumber == "" {
		s.logger.Info("weekly digest generated", zap.String("digest", digest))
		return
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.WhatsApp.ManagerNumber,
		Message: digest,
	}

	if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send weekly digest", zap.Error(err))
	} else {
		s.logger.Info("weekly digest sent successfully")
	}
}

// nextMonday returns the first Monday strictly after t, as a UTC calendar day.
func nextMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (8 - int(day.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
