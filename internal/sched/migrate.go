package sched

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"rtsched/internal/logging"
	"rtsched/internal/tracing"
)

// Mover physically moves a task's execution context onto a CPU.
type Mover interface {
	MoveTask(ctx context.Context, id TaskID, cpu int) error
}

// MoverFunc adapts a function to Mover.
type MoverFunc func(ctx context.Context, id TaskID, cpu int) error

func (f MoverFunc) MoveTask(ctx context.Context, id TaskID, cpu int) error { return f(ctx, id, cpu) }

// NopMover accepts every move. It suits simulations where the execution
// context is purely logical.
var NopMover Mover = MoverFunc(func(context.Context, TaskID, int) error { return nil })

// Migrator serializes physical moves: at most one is in flight at a time.
// It must never be entered while holding the scheduler lock.
type Migrator struct {
	permit chan struct{}
	mover  Mover
	log    *slog.Logger
}

// NewMigrator wraps mover; nil falls back to NopMover.
func NewMigrator(mover Mover, log *slog.Logger) *Migrator {
	if mover == nil {
		mover = NopMover
	}
	return &Migrator{
		permit: make(chan struct{}, 1),
		mover:  mover,
		log:    logging.Component(log, "migrator"),
	}
}

// Migrate moves task id onto cpu. Failures are returned wrapped in
// ErrMigration and are never retried.
func (m *Migrator) Migrate(ctx context.Context, id TaskID, cpu int) (err error) {
	select {
	case m.permit <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: task %d to cpu %d: %w", ErrMigration, id, cpu, ctx.Err())
	}
	defer func() { <-m.permit }()

	ctx, span := tracing.StartSpan(ctx, "migrate",
		attribute.Int64("task.id", int64(id)),
		attribute.Int("cpu", cpu),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if err := m.mover.MoveTask(ctx, id, cpu); err != nil {
		return fmt.Errorf("%w: task %d to cpu %d: %w", ErrMigration, id, cpu, err)
	}
	m.log.Debug("migrated", "task", id, "cpu", cpu)
	return nil
}
