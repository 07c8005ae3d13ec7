package tasking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/catalog"
	"github.com/taskprod/backend/internal/domain/identity"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/domain/tasking"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"github.com/taskprod/backend/internal/infrastructure/mail"
	"github.com/taskprod/backend/internal/infrastructure/scheduler"
	"github.com/taskprod/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// JobTypeTaskReminder is the job type of a single reminder dispatch
const JobTypeTaskReminder = "task_reminder"

// ReminderOutcome reports what a dispatch did
type ReminderOutcome string

const (
	OutcomeNotFound ReminderOutcome = "not_found"
	OutcomeSkipped  ReminderOutcome = "skipped"
	OutcomeSent     ReminderOutcome = "sent"
	OutcomeNoEmail  ReminderOutcome = "no_email"
)

// ReminderPayload is the job payload of a reminder dispatch
type ReminderPayload struct {
	TaskID  uuid.UUID `json:"task_id"`
	DueDate time.Time `json:"due_date"`
}

// ReminderKey identifies one reminder for one scheduled due date. A
// rescheduled task gets a new key.
func ReminderKey(taskID uuid.UUID, dueDate time.Time) string {
	return fmt.Sprintf("reminder:%s:%d", taskID, dueDate.Unix())
}

// ReminderService finds tasks coming due and mails their assignees
type ReminderService struct {
	taskRepo    tasking.TaskRepository
	productRepo catalog.ProductRepository
	userRepo    identity.UserRepository
	queue       scheduler.Queue
	sender      mail.Sender
	lead        time.Duration
	tolerance   time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	taskRepo tasking.TaskRepository,
	productRepo catalog.ProductRepository,
	userRepo identity.UserRepository,
	queue scheduler.Queue,
	sender mail.Sender,
	cfg config.SchedulerConfig,
	l *zap.Logger,
) *ReminderService {
	if l == nil {
		l = zap.NewNop()
	}
	return &ReminderService{
		taskRepo:    taskRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		queue:       queue,
		sender:      sender,
		lead:        cfg.ReminderLead,
		tolerance:   cfg.ReminderTolerance,
		now:         shared.Now,
		logger:      l.Named("reminder"),
	}
}

// Register installs the dispatch handler on the worker pool
func (s *ReminderService) Register(pool *scheduler.WorkerPool) {
	pool.Register(JobTypeTaskReminder, scheduler.HandlerFunc(s.HandleJob))
}

// ScanDueTasks enqueues one dispatch job per open task due inside
// [now+lead-tolerance, now+lead+tolerance]. It returns the number of jobs
// newly enqueued; tasks already claimed by an earlier scan are skipped.
func (s *ReminderService) ScanDueTasks(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reminder", "scan")
	defer span.End()

	now := s.now()
	from := now.Add(s.lead - s.tolerance)
	to := now.Add(s.lead + s.tolerance)
	log := logger.WithLogger(ctx, s.logger)

	tasks, err := s.taskRepo.FindDueBetween(ctx, from, to, tasking.OpenStatuses())
	if err != nil {
		err = fmt.Errorf("failed to scan due tasks: %w", err)
		telemetry.RecordError(span, err)
		return 0, err
	}

	var (
		enqueued int
		errs     []error
	)
	for i := range tasks {
		task := &tasks[i]
		payload := ReminderPayload{TaskID: task.ID, DueDate: task.DueDate}
		ok, err := s.queue.Enqueue(ctx, JobTypeTaskReminder, payload, ReminderKey(task.ID, task.DueDate))
		if err != nil {
			log.Error("Failed to enqueue reminder", zap.String("task_id", task.ID.String()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if ok {
			enqueued++
		}
	}

	log.Info("Due task scan finished",
		zap.Time("window_from", from),
		zap.Time("window_to", to),
		zap.Int("found", len(tasks)),
		zap.Int("enqueued", enqueued),
	)
	span.SetAttributes(attribute.Int("reminder.found", len(tasks)), attribute.Int("reminder.enqueued", enqueued))
	err = errors.Join(errs...)
	telemetry.RecordError(span, err)
	return enqueued, err
}

// HandleJob runs one reminder dispatch job
func (s *ReminderService) HandleJob(ctx context.Context, job *scheduler.Job) error {
	var payload ReminderPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("invalid reminder payload: %w", err)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "reminder", "dispatch",
		attribute.String("task_id", payload.TaskID.String()),
	)
	defer span.End()

	outcome, err := s.DispatchReminder(ctx, payload.TaskID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	span.SetAttributes(attribute.String("reminder.outcome", string(outcome)))
	logger.WithLogger(ctx, s.logger).Info("Reminder dispatched",
		zap.String("task_id", payload.TaskID.String()),
		zap.String("outcome", string(outcome)),
	)
	return nil
}

// DispatchReminder re-reads the task and sends the reminder if the task is
// still eligible. Errors are returned only for failures worth retrying.
func (s *ReminderService) DispatchReminder(ctx context.Context, taskID uuid.UUID) (ReminderOutcome, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, shared.FindOptions{IncludeDeleted: true})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return OutcomeNotFound, nil
		}
		return "", err
	}
	if !task.IsReminderEligible() {
		return OutcomeSkipped, nil
	}

	user, err := s.userRepo.FindByID(ctx, task.AssignedUserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return OutcomeNoEmail, nil
		}
		return "", err
	}
	if !user.HasEmail() {
		return OutcomeNoEmail, nil
	}

	productName := ""
	if product, err := s.productRepo.FindByID(ctx, task.ProductID, shared.FindOptions{IncludeDeleted: true}); err == nil {
		productName = product.Name
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: ReminderSubject(task),
		Body:    ReminderBody(user.Username, productName, task),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to send reminder: %w", err)
	}
	return OutcomeSent, nil
}

// ReminderSubject renders the reminder subject line
func ReminderSubject(task *tasking.Task) string {
	return fmt.Sprintf("Reminder: '%s' due at %s", task.Title, formatDue(task.DueDate))
}

// ReminderBody renders the reminder message
func ReminderBody(username, productName string, task *tasking.Task) string {
	return fmt.Sprintf("Hello %s,\n\nThis is a reminder that your task '%s' (product: %s) is due at %s.\n\nDescription: %s\n\nRegards.",
		username, task.Title, productName, formatDue(task.DueDate), task.Description)
}

func formatDue(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
