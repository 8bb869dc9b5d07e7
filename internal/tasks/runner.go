// Package tasks runs persisted, time-delayed work such as scoring.
package tasks

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

// Queue is the task side of the store.
type Queue interface {
	ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]model.Task, error)
	CompleteTask(ctx context.Context, id string) error
	FailTask(ctx context.Context, id string, reason string) error
}

// Handler executes one claimed task.
type Handler interface {
	HandleTask(ctx context.Context, t model.Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, t model.Task) error

func (f HandlerFunc) HandleTask(ctx context.Context, t model.Task) error { return f(ctx, t) }

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the number of concurrent task workers.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithPollInterval sets how often due tasks are claimed.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize caps how many tasks one claim returns.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithClock overrides the time source used to find due tasks.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner claims due tasks and dispatches them to handlers by kind. Failed
// tasks are marked failed and never retried automatically.
type Runner struct {
	queue    Queue
	handlers map[model.TaskKind]Handler
	workers  int
	batch    int
	interval time.Duration
	now      func() time.Time
}

// NewRunner creates a Runner over q.
func NewRunner(q Queue, opts ...Option) *Runner {
	r := &Runner{
		queue:    q,
		handlers: make(map[model.TaskKind]Handler),
		workers:  2,
		batch:    10,
		interval: time.Second,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handle registers h for tasks of the given kind.
func (r *Runner) Handle(kind model.TaskKind, h Handler) {
	r.handlers[kind] = h
}

// Run polls for due tasks until ctx is canceled, then waits for in-flight
// tasks to finish.
func (r *Runner) Run(ctx context.Context) error {
	jobs := make(chan model.Task, r.workers)

	var g errgroup.Group
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for t := range jobs {
				r.process(ctx, t)
			}
			return nil
		})
	}

	zap.L().Info("tasks: runner started",
		zap.Int("workers", r.workers),
		zap.Duration("poll_interval", r.interval),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			r.dispatch(ctx, jobs)
		}
	}

	close(jobs)
	_ = g.Wait()
	zap.L().Info("tasks: runner stopped")
	return ctx.Err()
}

// dispatch claims batches until nothing is due.
func (r *Runner) dispatch(ctx context.Context, jobs chan<- model.Task) {
	for ctx.Err() == nil {
		due, err := r.queue.ClaimDueTasks(ctx, r.now(), r.batch)
		if err != nil {
			zap.L().Error("tasks: claim failed", zap.Error(err))
			return
		}
		for _, t := range due {
			select {
			case jobs <- t:
			case <-ctx.Done():
				// Claimed but never started; leave a trace for operators.
				if ferr := r.queue.FailTask(context.WithoutCancel(ctx), t.ID, "runner stopped before start"); ferr != nil {
					zap.L().Error("tasks: release failed", zap.String("task_id", t.ID), zap.Error(ferr))
				}
			}
		}
		if len(due) < r.batch {
			return
		}
	}
}

// RunDue processes every task due now and returns how many ran. Tasks that
// become due while it runs are left for the next call.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	cutoff := r.now()
	total := 0
	for {
		due, err := r.queue.ClaimDueTasks(ctx, cutoff, r.batch)
		if err != nil {
			return total, eris.Wrap(err, "tasks: claim due")
		}
		if len(due) == 0 {
			return total, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.workers)
		for _, t := range due {
			g.Go(func() error {
				r.process(gctx, t)
				return nil
			})
		}
		_ = g.Wait()
		total += len(due)

		if len(due) < r.batch {
			return total, nil
		}
	}
}

func (r *Runner) process(ctx context.Context, t model.Task) {
	log := zap.L().With(
		zap.String("task_id", t.ID),
		zap.String("kind", string(t.Kind)),
		zap.String("company_id", t.CompanyID),
	)

	err := r.invoke(ctx, t)
	if err != nil {
		log.Warn("tasks: task failed", zap.Error(err))
		if ferr := r.queue.FailTask(context.WithoutCancel(ctx), t.ID, err.Error()); ferr != nil {
			log.Error("tasks: mark failed", zap.Error(ferr))
		}
		return
	}
	if cerr := r.queue.CompleteTask(context.WithoutCancel(ctx), t.ID); cerr != nil {
		log.Error("tasks: mark done", zap.Error(cerr))
		return
	}
	log.Debug("tasks: task done")
}

func (r *Runner) invoke(ctx context.Context, t model.Task) (err error) {
	h, ok := r.handlers[t.Kind]
	if !ok {
		return eris.Errorf("tasks: no handler for kind %q", t.Kind)
	}
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("tasks: handler panic: %v", p)
		}
	}()
	return h.HandleTask(ctx, t)
}
