package ledger

import (
	"context"
	"time"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/logger"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Option configures a ledger service
type Option func(*serviceConfig)

type serviceConfig struct {
	now       func() time.Time
	location  *time.Location
	logger    *zap.Logger
	publisher shared.EventPublisher
	policy    ledger.SettlementPolicy
	metrics   *telemetry.LedgerMetrics
}

func newServiceConfig(opts []Option) serviceConfig {
	cfg := serviceConfig{
		now:      time.Now,
		location: time.UTC,
		logger:   zap.NewNop(),
		policy:   ledger.DefaultSettlementPolicy(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *serviceConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the time zone used to derive "today" on first run
func WithLocation(loc *time.Location) Option {
	return func(c *serviceConfig) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(c *serviceConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEventPublisher publishes domain events after each committed operation
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(c *serviceConfig) {
		c.publisher = p
	}
}

// WithSettlementPolicy sets the rounding threshold for PAID/CREDIT
func WithSettlementPolicy(p ledger.SettlementPolicy) Option {
	return func(c *serviceConfig) {
		c.policy = p
	}
}

// WithMetrics records ledger counters; nil disables them
func WithMetrics(m *telemetry.LedgerMetrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// today returns the calendar date of the clock in the configured zone
func (c serviceConfig) today() valueobject.BusinessDate {
	t := c.now().In(c.location)
	return valueobject.NewBusinessDate(t.Year(), t.Month(), t.Day())
}

// log returns the service logger tagged with the request and actor in ctx
func (c serviceConfig) log(ctx context.Context) *zap.Logger {
	return logger.ForContext(ctx, c.logger)
}

// publish hands events to the bus. The operation has already committed, so a
// publishing failure is logged and not returned.
func (c serviceConfig) publish(ctx context.Context, events ...shared.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.log(ctx).Error("Failed to publish ledger events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}
