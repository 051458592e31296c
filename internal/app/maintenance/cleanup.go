package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/internal/services"
	"github.com/crewdeckhq/crewdeck/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultDeclinedAfterDays  = 30
	defaultJoinRequestSpec    = "@hourly"
	defaultMembershipSpec     = "@daily"
	defaultAuditSpec          = "@daily"
)

// Cleaner coordinates background maintenance tasks: purging expired join
// request codes, pruning stale declined memberships, and enforcing audit
// log retention.
type Cleaner struct {
	db    *gorm.DB
	audit *services.AuditService
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	retention     int
	declinedAfter int

	joinRequestSchedule string
	membershipSchedule  string
	auditSchedule       string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithDeclinedAfterDays adjusts how long declined membership records linger
// before they are deleted.
func WithDeclinedAfterDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.declinedAfter = days
		}
	}
}

// WithJoinRequestSchedule overrides the cron specification for join request cleanup.
func WithJoinRequestSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.joinRequestSchedule = spec
		}
	}
}

// WithMembershipSchedule overrides the cron specification for declined membership cleanup.
func WithMembershipSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.membershipSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil audit service
// skips the retention job; the database handle is required for the rest.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                  db,
		audit:               audit,
		now:                 time.Now,
		retention:           defaultAuditRetentionDays,
		declinedAfter:       defaultDeclinedAfterDays,
		joinRequestSchedule: defaultJoinRequestSpec,
		membershipSchedule:  defaultMembershipSpec,
		auditSchedule:       defaultAuditSpec,
		log:                 logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db != nil {
		if _, err := c.cron.AddFunc(c.joinRequestSchedule, func() {
			ctx := context.Background()
			if _, err := CleanupJoinRequests(ctx, c.db, c.now()); err != nil {
				c.log.Warn("join request cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}

		if _, err := c.cron.AddFunc(c.membershipSchedule, func() {
			ctx := context.Background()
			if _, err := CleanupDeclinedMemberships(ctx, c.db, c.now(), c.declinedAfter); err != nil {
				c.log.Warn("membership cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used
// in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.db != nil {
		if _, err := CleanupJoinRequests(ctx, c.db, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
		if _, err := CleanupDeclinedMemberships(ctx, c.db, c.now(), c.declinedAfter); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupJoinRequests removes join request codes that expired without being
// redeemed, plus redeemed and declined ones past their expiry.
func CleanupJoinRequests(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup join requests: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.JoinRequest{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup join requests: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupDeclinedMemberships deletes membership records that have sat in the
// declined state for longer than afterDays.
func CleanupDeclinedMemberships(ctx context.Context, db *gorm.DB, now time.Time, afterDays int) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup declined memberships: db is required")
	}
	if afterDays <= 0 {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := now.AddDate(0, 0, -afterDays)
	result := db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.MemberStatusDeclined, cutoff).
		Delete(&models.CompanyMember{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup declined memberships: %w", result.Error)
	}
	return result.RowsAffected, nil
}
