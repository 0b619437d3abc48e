package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// DigestConfig tunes the daily digest.
type DigestConfig struct {
	Schedule    string         // cron spec, evaluated in Location
	Location    *time.Location // defines "today"
	Limit       int            // chores fetched per user
	Shown       int            // chores listed in the message
	Concurrency int            // users processed in parallel
}

// DigestService sends every opted-in user the list of chores due today.
type DigestService struct {
	users    UserDirectory
	chores   ChoreRepository
	notifier Notifier
	cfg      DigestConfig
	now      func() time.Time
	logger   *zap.Logger
}

// DigestOption customises a DigestService.
type DigestOption func(*DigestService)

// WithDigestClock replaces the wall clock that decides which day is "today".
func WithDigestClock(now func() time.Time) DigestOption {
	return func(s *DigestService) { s.now = now }
}

// NewDigestService creates a new digest service.
func NewDigestService(
	users UserDirectory,
	chores ChoreRepository,
	notifier Notifier,
	cfg DigestConfig,
	logger *zap.Logger,
	opts ...DigestOption,
) *DigestService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Shown <= 0 || cfg.Shown > cfg.Limit {
		cfg.Shown = min(5, cfg.Limit)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	s := &DigestService{
		users:    users,
		chores:   chores,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start runs the digest on its schedule until ctx is cancelled.
func (s *DigestService) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.cfg.Location))

	_, err := c.AddFunc(s.cfg.Schedule, func() {
		s.logger.Info("cron triggered: sending daily digest")
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("daily digest failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("add digest schedule %q: %w", s.cfg.Schedule, err)
	}

	c.Start()
	s.logger.Info("digest scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.String("timezone", s.cfg.Location.String()),
	)

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("digest scheduler stopped")

	return nil
}

// RunOnce sends the digest for the current day and returns how many
// messages were delivered.
func (s *DigestService) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	from, to := dayBounds(now, s.cfg.Location)

	recipients, err := s.users.ListDigestRecipients(ctx)
	if err != nil {
		return 0, fmt.Errorf("list digest recipients: %w", err)
	}

	s.logger.Info("daily digest started",
		zap.Time("now", now),
		zap.Int("recipients", len(recipients)),
	)

	sent := s.processBatch(ctx, recipients, from, to)

	s.logger.Info("daily digest completed", zap.Int("sent", sent))

	return sent, nil
}

// processBatch sends digests concurrently with bounded parallelism.
func (s *DigestService) processBatch(ctx context.Context, users []*entities.User, from, to time.Time) int {
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	sent := 0

	for _, u := range users {
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			delivered, err := s.processUser(ctx, u, from, to)
			if err != nil {
				s.logger.Error("failed to send daily digest",
					zap.String("user_id", u.ID),
					zap.Error(err),
				)
				return
			}
			if delivered {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return sent
}

func (s *DigestService) processUser(ctx context.Context, u *entities.User, from, to time.Time) (bool, error) {
	if !u.CanReceiveMessages() {
		s.logger.Debug("user cannot receive digest", zap.String("user_id", u.ID))
		return false, nil
	}
	if u.HouseholdID == "" {
		s.logger.Warn("user has no household", zap.String("user_id", u.ID))
		return false, nil
	}

	chores, err := s.chores.ListPendingDue(ctx, u.ID, from, to, s.cfg.Limit)
	if err != nil {
		return false, fmt.Errorf("list pending chores: %w", err)
	}
	if len(chores) == 0 {
		s.logger.Debug("no chores today", zap.String("user_id", u.ID))
		return false, nil
	}

	shown := chores
	if len(shown) > s.cfg.Shown {
		shown = shown[:s.cfg.Shown]
	}

	req := entities.NotificationRequest{
		UserID: u.ID,
		Kind:   entities.NotificationDailyDigest,
		Payload: entities.DigestPayload{
			UserName: u.Name,
			Chores:   shown,
			Total:    len(chores),
		},
	}
	if err := s.notifier.Notify(ctx, req); err != nil {
		return false, fmt.Errorf("send digest: %w", err)
	}

	s.logger.Info("sent daily digest",
		zap.String("user_id", u.ID),
		zap.Int("chores", len(chores)),
	)

	return true, nil
}

// dayBounds returns the UTC instants delimiting the calendar day of t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
