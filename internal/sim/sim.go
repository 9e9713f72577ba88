// Package sim drives a Scheduler with periodic job releases on a discrete
// time line and records how the jobs fare.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"rtsched/internal/job"
	"rtsched/internal/sched"
)

// Simulator releases one job of every periodic task at multiples of its
// period and runs the running set for one time unit per step.
type Simulator struct {
	sched *sched.Scheduler
	specs []sched.TaskSpec
	jobs  *job.Tracker
	now   atomic.Int64
	log   *slog.Logger
}

// New builds a simulator and its scheduler. The scheduler's clock is the
// simulated time line.
func New(cfg sched.Config, mover sched.Mover, log *slog.Logger) (*Simulator, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Simulator{
		specs: append([]sched.TaskSpec(nil), cfg.Tasks...),
		jobs:  job.NewTracker(),
		log:   log,
	}
	sort.Slice(s.specs, func(i, j int) bool { return s.specs[i].ID < s.specs[j].ID })

	sc, err := sched.New(cfg, mover, sched.WithClock(s), sched.WithLogger(log))
	if err != nil {
		return nil, err
	}
	s.sched = sc
	return s, nil
}

// Now implements sched.Clock.
func (s *Simulator) Now() int64 { return s.now.Load() }

// Scheduler returns the driven scheduler.
func (s *Simulator) Scheduler() *sched.Scheduler { return s.sched }

// Stats returns the counters of task id.
func (s *Simulator) Stats(id sched.TaskID) job.Stats { return s.jobs.Stats(id) }

// Submit registers every task of the workload.
func (s *Simulator) Submit(ctx context.Context) error {
	for _, spec := range s.specs {
		if err := s.sched.Submit(ctx, spec.ID, spec.Params()); err != nil {
			return fmt.Errorf("submit workload: %w", err)
		}
	}
	return nil
}

// Step simulates the time unit [now, now+1).
func (s *Simulator) Step(ctx context.Context) error {
	now := s.Now()

	// 1) releases
	for _, spec := range s.specs {
		p := spec.Params()
		if p.T == 0 || now%p.T != 0 {
			continue
		}
		if !s.jobs.Release(spec.ID, now, p) {
			s.log.Warn("job overrun", "task", spec.ID, "time", now)
			continue
		}
		if _, err := s.sched.JobStart(ctx, spec.ID); err != nil {
			return fmt.Errorf("job start %d at %d: %w", spec.ID, now, err)
		}
	}

	// 2) execution: every occupied CPU runs its task, idle CPUs run
	// best-effort jobs in id order
	snap := s.sched.Snapshot()
	var done []sched.TaskID
	idle := 0
	for _, cpu := range snap.CPUs {
		if !cpu.Occupied {
			idle++
			continue
		}
		if s.jobs.Run(cpu.Task) {
			done = append(done, cpu.Task)
		}
	}
	var bestEffort []sched.TaskID
	for _, t := range s.sched.Tasks() {
		if idle == 0 {
			break
		}
		if t.Class != sched.ClassBestEffort {
			continue
		}
		if _, ok := s.jobs.Active(t.ID); !ok {
			continue
		}
		idle--
		if s.jobs.Run(t.ID) {
			bestEffort = append(bestEffort, t.ID)
		}
	}

	// 3) completions
	now = s.now.Add(1)
	sort.Slice(done, func(i, j int) bool { return done[i] < done[j] })
	for _, id := range done {
		s.finish(id, now)
		if err := s.sched.JobComplete(ctx, id); err != nil {
			return fmt.Errorf("job complete %d at %d: %w", id, now, err)
		}
	}
	for _, id := range bestEffort {
		s.finish(id, now)
	}
	return nil
}

func (s *Simulator) finish(id sched.TaskID, now int64) {
	j, ok := s.jobs.Finish(id, now)
	if ok && now > j.Deadline {
		s.log.Info("deadline miss", "task", id, "deadline", j.Deadline, "finish", now)
	}
}

// RunSteps simulates n time units.
func (s *Simulator) RunSteps(ctx context.Context, n int64) error {
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run advances one time unit per tick of a real clock until ctx is done
// or limit steps have been taken (limit <= 0 means no limit).
func (s *Simulator) Run(ctx context.Context, tick time.Duration, limit int64) error {
	clock := NewTickClock(tick)
	defer func() {
		clock.Stop()
		if missed := clock.Missed(); missed > 0 {
			s.log.Warn("simulator lagged behind wall clock", "missed_ticks", missed, "elapsed_ticks", clock.Elapsed())
		}
	}()

	for steps := int64(0); limit <= 0 || steps < limit; steps++ {
		select {
		case <-ctx.Done():
			return nil
		case <-clock.C:
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}
