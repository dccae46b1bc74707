package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/alerting"
	"nurseconnect-registration/internal/analytics"
	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/util"
)

// MessageSource is satisfied by *client.KafkaConsumer.
type MessageSource interface {
	FetchMessage(ctx context.Context) (*kafka.Message, error)
	Commit(ctx context.Context, msg *kafka.Message) error
}

type Alerter interface {
	Alert(ctx context.Context, alert alerting.Alert)
}

type EventRecorder interface {
	Record(ctx context.Context, e analytics.Event)
}

// Worker executes jobs. A job is committed only after it has succeeded, been
// rescheduled or failed for good.
type Worker struct {
	queue    Queue
	handlers map[string]Handler
	policy   RetryPolicy
	alerter  Alerter
	recorder EventRecorder
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewWorker(queue Queue, policy RetryPolicy, alerter Alerter, recorder EventRecorder, m *metrics.Metrics) *Worker {
	return &Worker{
		queue:    queue,
		handlers: make(map[string]Handler),
		policy:   policy,
		alerter:  alerter,
		recorder: recorder,
		metrics:  m,
		now:      time.Now,
	}
}

func (w *Worker) Register(task string, h Handler) {
	w.handlers[task] = h
}

// Process runs one attempt of env. A returned error means the job was
// neither finished nor rescheduled and must be redelivered.
func (w *Worker) Process(ctx context.Context, env *Envelope) error {
	h, ok := w.handlers[env.Task]
	if !ok {
		return fmt.Errorf("no handler registered for task %q", env.Task)
	}

	out := env.Payload
	err := w.policy.Run(ctx, func(ctx context.Context) error {
		next, err := h.Handle(ctx, &env.Payload)
		if err == nil && next != nil {
			out = *next
		}
		return err
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err == nil {
		w.metrics.IncrementJobOutcome(env.Task, "success")
		return w.chain(ctx, env, out)
	}

	if w.policy.Retryable(err, env.Attempt) {
		retry := *env
		retry.Attempt++
		retry.NotBefore = w.now().Add(w.policy.Backoff(env.Attempt))
		util.Warn("Job attempt failed, retrying",
			zap.String("job_id", env.ID),
			zap.String("task", env.Task),
			zap.Int("attempt", retry.Attempt),
			zap.Time("not_before", retry.NotBefore),
			zap.Error(err))
		if qerr := w.queue.Enqueue(ctx, &retry); qerr != nil {
			return fmt.Errorf("failed to reschedule job %s: %w", env.ID, qerr)
		}
		w.metrics.IncrementJobOutcome(env.Task, "retry")
		return nil
	}

	w.metrics.IncrementJobOutcome(env.Task, "failed")
	w.alerter.Alert(ctx, alerting.Alert{
		Kind:   alerting.KindJobFailed,
		MSISDN: env.Payload.MSISDN,
		Err:    err,
		Details: map[string]interface{}{
			"job_id":          env.ID,
			"task":            env.Task,
			"attempts":        env.Attempt + 1,
			"registration_id": env.Payload.ID,
		},
	})
	if w.recorder != nil {
		w.recorder.Record(ctx, analytics.Event{
			Name:   analytics.EventJobFailed,
			MSISDN: env.Payload.MSISDN,
			Detail: env.Task,
		})
	}
	return nil
}

func (w *Worker) chain(ctx context.Context, env *Envelope, payload models.RegistrationPayload) error {
	if env.Task != TaskDirectoryUpsert {
		return nil
	}
	next := &Envelope{
		ID:      uuid.NewString(),
		Task:    TaskExchangeNotify,
		Payload: payload,
	}
	if err := w.queue.Enqueue(ctx, next); err != nil {
		return fmt.Errorf("failed to queue exchange notification for job %s: %w", env.ID, err)
	}
	return nil
}

// Run consumes src until ctx is done.
func (w *Worker) Run(ctx context.Context, src MessageSource) error {
	return consume(ctx, src, w.Process)
}

// RelayRetries moves due jobs from the retry topic back to their task topic.
// It holds each message until its NotBefore.
func RelayRetries(ctx context.Context, src MessageSource, queue Queue) error {
	return consume(ctx, src, func(ctx context.Context, env *Envelope) error {
		if wait := time.Until(env.NotBefore); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		env.NotBefore = time.Time{}
		return queue.Enqueue(ctx, env)
	})
}

func consume(ctx context.Context, src MessageSource, fn func(context.Context, *Envelope) error) error {
	for {
		msg, err := src.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch job: %w", err)
		}

		env, err := UnmarshalEnvelope(msg.Value)
		if err != nil {
			util.Error("Dropping malformed job",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		} else if !processUntilDone(ctx, env, fn) {
			return nil
		}

		if err := src.Commit(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit job: %w", err)
		}
	}
}

// processUntilDone repeats fn in place until it succeeds, since committing a
// later offset would skip this message. It returns false once ctx is done.
func processUntilDone(ctx context.Context, env *Envelope, fn func(context.Context, *Envelope) error) bool {
	delay := time.Second
	for {
		err := fn(ctx, env)
		if err == nil {
			return true
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return false
		}
		util.Error("Job processing failed",
			zap.String("job_id", env.ID),
			zap.String("task", env.Task),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}
