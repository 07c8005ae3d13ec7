package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// TriggerFunc is the periodic work started by a CronTrigger
type TriggerFunc func(ctx context.Context) error

// CronTrigger runs a function at a fixed interval on a robfig/cron
// schedule. Overlapping runs are skipped.
type CronTrigger struct {
	name     string
	interval time.Duration
	fn       TriggerFunc
	logger   *zap.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	cancel    context.CancelFunc
	isRunning bool
}

// NewCronTrigger creates a trigger; interval is rounded to whole seconds
func NewCronTrigger(name string, interval time.Duration, fn TriggerFunc, l *zap.Logger) (*CronTrigger, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("%w: trigger interval %s below one second", ErrInvalidConfig, interval)
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &CronTrigger{
		name:     name,
		interval: interval.Round(time.Second),
		fn:       fn,
		logger:   l.Named("cron").With(zap.String("trigger", name)),
	}, nil
}

// Spec returns the cron spec the trigger registers
func (c *CronTrigger) Spec() string {
	return fmt.Sprintf("@every %ds", int(c.interval.Seconds()))
}

// Start schedules the trigger; ctx bounds every run
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}

	cl := cronLogger{c.logger}
	cr := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(ctx)
	if _, err := cr.AddFunc(c.Spec(), func() { _ = c.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule %s: %w", c.name, err)
	}
	cr.Start()

	c.cron = cr
	c.cancel = cancel
	c.isRunning = true
	c.logger.Info("Cron trigger started", zap.String("spec", c.Spec()))
	return nil
}

// Stop unschedules the trigger and waits for a running invocation
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	cr, cancel := c.cron, c.cancel
	c.mu.Unlock()

	stopped := cr.Stop()
	select {
	case <-stopped.Done():
		cancel()
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// RunOnce invokes the trigger function immediately with a fresh run ID
func (c *CronTrigger) RunOnce(ctx context.Context) error {
	runCtx, runLog := logger.WithJobID(ctx, c.logger, uuid.NewString())
	start := time.Now()

	if err := c.fn(runCtx); err != nil {
		runLog.Error("Cron run failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return err
	}
	runLog.Debug("Cron run finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
