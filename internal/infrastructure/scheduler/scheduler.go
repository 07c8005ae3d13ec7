package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"github.com/taskprod/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MeterName names the meter the pool records its counters on
const MeterName = "taskprod/scheduler"

// JobStatus represents the status of a queued job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of background work
type Job struct {
	ID             uuid.UUID
	Type           string
	Payload        json.RawMessage
	IdempotencyKey string
	Status         JobStatus
	Error          string
	Attempts       int
	MaxRetries     int
	EnqueuedAt     time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// Decode unmarshals the job payload into v
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Type, err)
	}
	return nil
}

func (j *Job) start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Attempts++
	j.Error = ""
}

func (j *Job) complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

func (j *Job) fail(err error) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err.Error()
}

// shouldRetry returns true if the job has retries left
func (j *Job) shouldRetry() bool {
	return j.Status == JobStatusFailed && j.Attempts <= j.MaxRetries
}

// JobHandler executes jobs of one type
type JobHandler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to JobHandler
type HandlerFunc func(ctx context.Context, job *Job) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Queue accepts background work. Enqueue reports false without error when
// idempotencyKey is already claimed.
type Queue interface {
	Enqueue(ctx context.Context, jobType string, payload any, idempotencyKey string) (bool, error)
}

// Config holds worker pool configuration
type Config struct {
	Workers        int
	QueueSize      int
	JobTimeout     time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	IdempotencyTTL time.Duration
}

// DefaultConfig returns default worker pool configuration
func DefaultConfig() Config {
	return Config{
		Workers:        3,
		QueueSize:      100,
		JobTimeout:     30 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     30 * time.Second,
		IdempotencyTTL: 3 * time.Hour,
	}
}

// ConfigFromSettings maps the scheduler section of the service config
func ConfigFromSettings(cfg config.SchedulerConfig) Config {
	return Config{
		Workers:        cfg.Workers,
		QueueSize:      cfg.QueueSize,
		JobTimeout:     cfg.JobTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryDelay:     cfg.RetryDelay,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
}

func (c Config) validate() error {
	if c.Workers <= 0 || c.QueueSize <= 0 || c.JobTimeout <= 0 || c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidConfig, c)
	}
	return nil
}

// Stats is a snapshot of pool counters
type Stats struct {
	Enqueued   int64 `json:"enqueued"`
	Duplicates int64 `json:"duplicates"`
	Succeeded  int64 `json:"succeeded"`
	Retried    int64 `json:"retried"`
	GaveUp     int64 `json:"gave_up"`
	Queued     int   `json:"queued"`
}

// poolCounter is an otel counter with an in-process total for Stats
type poolCounter struct {
	counter *telemetry.Counter
	total   atomic.Int64
}

func (c *poolCounter) inc(ctx context.Context, jobType string) {
	c.total.Add(1)
	c.counter.Inc(ctx, attribute.String("job_type", jobType))
}

type poolMetrics struct {
	enqueued    poolCounter
	duplicates  poolCounter
	succeeded   poolCounter
	retried     poolCounter
	gaveUp      poolCounter
	jobDuration *telemetry.Histogram
}

func newPoolMetrics(meter metric.Meter) (*poolMetrics, error) {
	m := &poolMetrics{}
	counters := []struct {
		target      *poolCounter
		name        string
		description string
	}{
		{&m.enqueued, "scheduler_jobs_enqueued_total", "Jobs accepted onto the queue"},
		{&m.duplicates, "scheduler_jobs_duplicate_total", "Jobs skipped because their idempotency key was already claimed"},
		{&m.succeeded, "scheduler_jobs_succeeded_total", "Jobs that completed"},
		{&m.retried, "scheduler_jobs_retried_total", "Failed attempts scheduled for retry"},
		{&m.gaveUp, "scheduler_jobs_gave_up_total", "Jobs abandoned after their last attempt"},
	}
	for _, c := range counters {
		counter, err := telemetry.NewCounter(meter, c.name, c.description, "{job}")
		if err != nil {
			return nil, err
		}
		c.target.counter = counter
	}

	h, err := telemetry.NewHistogram(meter, "scheduler_job_duration_seconds", "Duration of a single job attempt", "s",
		0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30)
	if err != nil {
		return nil, err
	}
	m.jobDuration = h
	return m, nil
}

// PoolOption configures NewWorkerPool
type PoolOption func(*poolOptions)

type poolOptions struct {
	meter metric.Meter
}

// WithMeter records pool metrics on meter instead of the global provider
func WithMeter(meter metric.Meter) PoolOption {
	return func(o *poolOptions) {
		o.meter = meter
	}
}

// WorkerPool runs queued jobs on a fixed number of workers. Each job type
// needs a registered handler; failed jobs are retried in place after
// RetryDelay until RetryAttempts is exhausted.
type WorkerPool struct {
	config   Config
	store    shared.IdempotencyStore
	logger   *zap.Logger
	handlers map[string]JobHandler

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	metrics   *poolMetrics
}

// NewWorkerPool creates a worker pool. store may be nil, in which case
// idempotency keys are ignored.
func NewWorkerPool(cfg Config, store shared.IdempotencyStore, l *zap.Logger, opts ...PoolOption) (*WorkerPool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = zap.NewNop()
	}
	o := poolOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meter == nil {
		o.meter = otel.GetMeterProvider().Meter(MeterName)
	}
	metrics, err := newPoolMetrics(o.meter)
	if err != nil {
		return nil, err
	}
	return &WorkerPool{
		config:   cfg,
		store:    store,
		logger:   l.Named("scheduler"),
		handlers: make(map[string]JobHandler),
		metrics:  metrics,
	}, nil
}

// Register binds a handler to a job type. Call before Start.
func (p *WorkerPool) Register(jobType string, handler JobHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[jobType] = handler
}

// Start starts the workers
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.jobs = make(chan *Job, p.config.QueueSize)
	p.isRunning = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, p.jobs, i)
	}

	p.logger.Info("Worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop stops accepting jobs and lets the workers drain the queue. When ctx
// expires first, running jobs are cancelled and ctx.Err() is returned.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("Worker pool stop timed out, running jobs cancelled")
		return ctx.Err()
	}
}

// Enqueue claims idempotencyKey (when set) and queues a job. A claimed key
// is released again if the job cannot be queued.
func (p *WorkerPool) Enqueue(ctx context.Context, jobType string, payload any, idempotencyKey string) (bool, error) {
	p.mu.RLock()
	_, known := p.handlers[jobType]
	p.mu.RUnlock()
	if !known {
		return false, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s payload: %w", jobType, err)
	}

	claimed := false
	if idempotencyKey != "" && p.store != nil {
		isNew, err := p.store.MarkProcessed(ctx, idempotencyKey, p.config.IdempotencyTTL)
		if err != nil {
			return false, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if !isNew {
			p.metrics.duplicates.inc(ctx, jobType)
			logger.L(ctx).Debug("Duplicate job skipped",
				zap.String("job_type", jobType),
				zap.String("idempotency_key", idempotencyKey),
			)
			return false, nil
		}
		claimed = true
	}

	job := &Job{
		ID:             uuid.New(),
		Type:           jobType,
		Payload:        data,
		IdempotencyKey: idempotencyKey,
		Status:         JobStatusPending,
		MaxRetries:     p.config.RetryAttempts,
		EnqueuedAt:     time.Now(),
	}

	if err := p.submit(job); err != nil {
		if claimed {
			if rerr := p.store.Release(ctx, idempotencyKey); rerr != nil {
				logger.L(ctx).Error("Failed to release idempotency key",
					zap.String("idempotency_key", idempotencyKey),
					zap.Error(rerr),
				)
			}
		}
		return false, err
	}

	p.metrics.enqueued.inc(ctx, jobType)
	logger.L(ctx).Debug("Job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", jobType),
	)
	return true, nil
}

func (p *WorkerPool) submit(job *Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.isRunning {
		return ErrSchedulerNotRunning
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Stats returns a snapshot of the pool counters
func (p *WorkerPool) Stats() Stats {
	p.mu.RLock()
	queued := 0
	if p.isRunning {
		queued = len(p.jobs)
	}
	p.mu.RUnlock()

	return Stats{
		Enqueued:   p.metrics.enqueued.total.Load(),
		Duplicates: p.metrics.duplicates.total.Load(),
		Succeeded:  p.metrics.succeeded.total.Load(),
		Retried:    p.metrics.retried.total.Load(),
		GaveUp:     p.metrics.gaveUp.total.Load(),
		Queued:     queued,
	}
}

// worker processes jobs until the channel is closed or ctx is cancelled
func (p *WorkerPool) worker(ctx context.Context, jobs <-chan *Job, workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			p.processJob(ctx, job, workerID)
		}
	}
}

// processJob runs a job, retrying after RetryDelay while retries remain
func (p *WorkerPool) processJob(ctx context.Context, job *Job, workerID int) {
	jobCtx, jobLog := logger.WithJobID(ctx, p.logger, job.ID.String())
	jobLog = jobLog.With(zap.String("job_type", job.Type), zap.Int("worker_id", workerID))

	p.mu.RLock()
	handler := p.handlers[job.Type]
	p.mu.RUnlock()

	for {
		job.start()
		err := p.execute(jobCtx, handler, job)
		p.metrics.jobDuration.Record(jobCtx, time.Since(*job.StartedAt).Seconds(),
			attribute.String("job_type", job.Type),
			attribute.Bool("success", err == nil),
		)
		if err == nil {
			job.complete()
			p.metrics.succeeded.inc(jobCtx, job.Type)
			jobLog.Debug("Job completed", zap.Int("attempts", job.Attempts))
			return
		}

		job.fail(err)
		if !job.shouldRetry() || ctx.Err() != nil {
			p.metrics.gaveUp.inc(jobCtx, job.Type)
			jobLog.Error("Job failed, giving up",
				zap.Int("attempts", job.Attempts),
				zap.String("idempotency_key", job.IdempotencyKey),
				zap.Error(err),
			)
			return
		}

		p.metrics.retried.inc(jobCtx, job.Type)
		jobLog.Warn("Job failed, scheduled for retry",
			zap.Int("attempts", job.Attempts),
			zap.Int("max_retries", job.MaxRetries),
			zap.Duration("retry_delay", p.config.RetryDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			p.metrics.gaveUp.inc(jobCtx, job.Type)
			jobLog.Error("Job abandoned on shutdown", zap.Int("attempts", job.Attempts))
			return
		case <-time.After(p.config.RetryDelay):
		}
	}
}

// execute runs one attempt under the job timeout, converting panics to errors
func (p *WorkerPool) execute(ctx context.Context, handler JobHandler, job *Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, job)
}

// Ensure WorkerPool implements Queue
var _ Queue = (*WorkerPool)(nil)
