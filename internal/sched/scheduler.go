// internal/sched/scheduler.go

package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"rtsched/internal/logging"
)

// Scheduler decides which CPU each ready job runs on under one policy.
// Job events may arrive concurrently from every CPU.
type Scheduler struct {
	// Scheduler-related
	admit       sync.Mutex    // serialises admission and withdrawal; taken before mu
	mu          sync.Mutex    // protects registry, running, waiting and cpus; never held across a blocking call
	policy      Policy        // discipline in force
	order       Order         // eligibility order of policy
	registry    *Registry     // all submitted tasks by ID
	running     *OrderedQueue // at most one task per CPU, least eligible at the tail
	waiting     *OrderedQueue // ready tasks without a CPU, most eligible at the head
	cpus        *cpuTable     // occupancy, consistent with running
	coordinator int           // CPU global tasks are parked on at submission
	analyzer    *Analyzer     // partitioned policy only

	migrator *Migrator
	clock    Clock
	log      *slog.Logger

	events  chan Event
	dropped atomic.Int64
}

// Placement is the outcome of a job start.
type Placement struct {
	CPU        int // NoCPU unless the job runs
	Waiting    bool
	BestEffort bool
	Preempt    bool   // a running task was pushed back to the waiting set
	Preempted  TaskID // valid when Preempt is set
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source for absolute deadlines.
func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.log = l } }

// New creates a Scheduler for cfg. Physical moves go through mover; nil means
// the execution context is logical only.
func New(cfg Config, mover Mover, opts ...Option) (*Scheduler, error) {
	cfg.clamp()
	s := &Scheduler{
		registry:    NewRegistry(cfg.Capacity),
		cpus:        newCPUTable(cfg.CPUs),
		coordinator: cfg.CoordinatorCPU,
		events:      make(chan Event, cfg.EventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.clock == nil {
		s.clock = NewMonotonicClock()
	}
	base := s.log.With("policy", cfg.Policy)
	s.log = logging.Component(base, "scheduler")

	if cfg.Policy == PolicyPFP {
		s.analyzer = NewAnalyzer(cfg.CPUs, cfg.Overhead, base)
	}
	policy, err := NewPolicy(cfg.Policy, cfg.CPUs, s.analyzer)
	if err != nil {
		return nil, err
	}
	s.policy = policy
	s.order = policy.Order()
	s.running = NewOrderedQueue(InRunning, s.order)
	s.waiting = NewOrderedQueue(InWaiting, s.order)
	s.migrator = NewMigrator(mover, base)
	return s, nil
}

// Policy returns the discipline in force.
func (s *Scheduler) Policy() Policy { return s.policy }

// Analyzer returns the partitioning analyzer, nil for global policies.
func (s *Scheduler) Analyzer() *Analyzer { return s.analyzer }

// NumCPU returns the number of CPUs under management.
func (s *Scheduler) NumCPU() int { return s.cpus.size() }

// Events exposes the read-only event stream. Sends never block: when the
// buffer is full the event is dropped and counted. The channel is never closed.
func (s *Scheduler) Events() <-chan Event { return s.events }

// Dropped returns the number of events lost to a full buffer.
func (s *Scheduler) Dropped() int64 { return s.dropped.Load() }

func (s *Scheduler) emit(evs ...Event) {
	now := time.Now()
	for _, ev := range evs {
		ev.Time = now
		select {
		case s.events <- ev:
		default:
			s.dropped.Add(1)
		}
	}
}

// Submit registers a task. A task that fails admission is kept as
// best-effort. Submitting a known id is a no-op.
func (s *Scheduler) Submit(ctx context.Context, id TaskID, p Params) error {
	if err := p.Validate(s.policy.AllowAperiodic()); err != nil {
		return fmt.Errorf("submit task %d: %w", id, err)
	}

	s.admit.Lock()
	s.mu.Lock()
	if int(id) >= s.registry.Cap() {
		s.mu.Unlock()
		s.admit.Unlock()
		return fmt.Errorf("submit task %d: %w", id, ErrCapacity)
	}
	if _, err := s.registry.Get(id); err == nil {
		s.mu.Unlock()
		s.admit.Unlock()
		s.log.Debug("duplicate submit ignored", "task", id)
		return nil
	}
	s.mu.Unlock()

	// admission may run response-time analysis; keep it off the queue lock
	adm, err := s.policy.Admit(id, p)
	if err != nil {
		s.admit.Unlock()
		return fmt.Errorf("admit task %d: %w", id, err)
	}

	s.mu.Lock()
	t, _, err := s.registry.Add(id, p)
	if err != nil {
		s.mu.Unlock()
		s.admit.Unlock()
		return err
	}
	t.Eligibility = s.order.Max()
	t.Pinned = adm.Pinned
	t.Home = adm.Home
	t.Class = adm.Class
	dest := s.coordinator
	if s.policy.Partitioned() {
		dest = adm.Home
	}
	s.mu.Unlock()
	s.admit.Unlock()

	evs := []Event{{Kind: EventSubmit, TaskID: id, CPU: adm.Home}}
	if adm.Class == ClassBestEffort {
		evs = append(evs, Event{Kind: EventDegrade, TaskID: id, CPU: NoCPU})
		s.log.Warn("task degraded to best-effort", "task", id, "utilization", p.Utilization())
	}
	s.emit(evs...)

	if dest == NoCPU {
		return nil
	}
	return s.migrate(ctx, id, dest)
}

// JobStart places the released job of task id. A job that is already
// running or waiting keeps its place.
func (s *Scheduler) JobStart(ctx context.Context, id TaskID) (Placement, error) {
	now := s.clock.Now()

	s.mu.Lock()
	t, err := s.registry.Get(id)
	if err != nil {
		s.mu.Unlock()
		return Placement{CPU: NoCPU}, err
	}
	if t.Class == ClassBestEffort {
		s.mu.Unlock()
		return Placement{CPU: NoCPU, BestEffort: true}, nil
	}
	if t.Member != InNone {
		pl := placementOf(t)
		s.mu.Unlock()
		s.log.Debug("duplicate job start ignored", "task", id)
		return pl, nil
	}

	if t.Pinned {
		t.Eligibility = s.order.Max()
	} else {
		t.Eligibility = s.policy.JobKey(t, now)
	}
	cpu, victim := s.place(t)

	pl := Placement{CPU: cpu, Waiting: cpu == NoCPU}
	var evs []Event
	if victim != nil {
		pl.Preempt, pl.Preempted = true, victim.ID
		evs = append(evs, Event{Kind: EventPreempt, TaskID: victim.ID, CPU: cpu, Other: id})
	}
	if cpu == NoCPU {
		evs = append(evs, Event{Kind: EventWait, TaskID: id, CPU: NoCPU})
	} else {
		evs = append(evs, Event{Kind: EventPlace, TaskID: id, CPU: cpu})
	}
	move := cpu != NoCPU && cpu != t.LastCPU
	s.mu.Unlock()

	s.emit(evs...)
	if move {
		if err := s.migrate(ctx, id, cpu); err != nil {
			return Placement{CPU: NoCPU, Waiting: true}, err
		}
	}
	return pl, nil
}

// JobComplete releases the CPU of task id and hands it to the most eligible
// waiting task that may run there.
func (s *Scheduler) JobComplete(ctx context.Context, id TaskID) error {
	s.mu.Lock()
	t, err := s.registry.Get(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if t.Member == InNone {
		s.mu.Unlock()
		s.log.Debug("job complete without active job", "task", id)
		return nil
	}
	cpu, next := s.vacate(t)
	t.Eligibility = s.order.Max()

	evs := []Event{{Kind: EventComplete, TaskID: id, CPU: cpu}}
	var (
		move bool
		nid  TaskID
	)
	if next != nil {
		nid = next.ID
		move = next.LastCPU != cpu
		evs = append(evs, Event{Kind: EventPromote, TaskID: nid, CPU: cpu})
	}
	s.mu.Unlock()

	s.emit(evs...)
	if move {
		return s.migrate(ctx, nid, cpu)
	}
	return nil
}

// Withdraw removes task id from the scheduler altogether. Its analyzer
// binding is released before the id can be submitted again.
func (s *Scheduler) Withdraw(ctx context.Context, id TaskID) error {
	s.admit.Lock()
	s.mu.Lock()
	t, err := s.registry.Get(id)
	if err != nil {
		s.mu.Unlock()
		s.admit.Unlock()
		return err
	}
	cpu, next := s.vacate(t)
	s.registry.Remove(id)

	evs := []Event{{Kind: EventWithdraw, TaskID: id, CPU: cpu}}
	var (
		move bool
		nid  TaskID
	)
	if next != nil {
		nid = next.ID
		move = next.LastCPU != cpu
		evs = append(evs, Event{Kind: EventPromote, TaskID: nid, CPU: cpu})
	}
	s.mu.Unlock()
	s.policy.Release(id)
	s.admit.Unlock()

	s.emit(evs...)
	if move {
		return s.migrate(ctx, nid, cpu)
	}
	return nil
}

// place runs the placement algorithm for t. It returns the CPU t now holds,
// or NoCPU if t went to the waiting set, and the task it preempted, if any.
// Must be called with s.mu held.
func (s *Scheduler) place(t *Task) (int, *Task) {
	if s.policy.Partitioned() {
		if s.cpus.free(t.Home) {
			s.assign(t, t.Home)
			return t.Home, nil
		}
		if occ, err := s.registry.Get(s.cpus.owner[t.Home]); err == nil && s.order.Compare(occ.Eligibility, t.Eligibility) > 0 {
			s.evict(occ)
			s.assign(t, t.Home)
			return t.Home, occ
		}
		s.waiting.Insert(t)
		return NoCPU, nil
	}

	// 1) home CPU, 2) any idle CPU
	if s.cpus.free(t.LastCPU) {
		s.assign(t, t.LastCPU)
		return t.LastCPU, nil
	}
	if cpu := s.cpus.firstFree(); cpu != NoCPU {
		s.assign(t, cpu)
		return cpu, nil
	}
	// 3) preempt the least eligible running task if strictly less eligible
	if low := s.running.Tail(); low != nil && s.order.Compare(low.Eligibility, t.Eligibility) > 0 {
		cpu := low.CPU
		s.evict(low)
		s.assign(t, cpu)
		return cpu, low
	}
	// 4) wait
	s.waiting.Insert(t)
	return NoCPU, nil
}

func (s *Scheduler) assign(t *Task, cpu int) {
	t.CPU = cpu
	s.cpus.take(cpu, t.ID)
	s.running.Insert(t)
}

func (s *Scheduler) evict(t *Task) {
	s.running.Remove(t)
	s.cpus.release(t.CPU)
	t.CPU = NoCPU
	s.waiting.Insert(t)
}

// vacate takes t out of whichever set holds it. If t held a CPU, the CPU is
// given to the next waiting task, which is returned. Must be called with
// s.mu held.
func (s *Scheduler) vacate(t *Task) (int, *Task) {
	switch t.Member {
	case InWaiting:
		s.waiting.Remove(t)
		return NoCPU, nil
	case InRunning:
	default:
		return NoCPU, nil
	}

	cpu := t.CPU
	s.running.Remove(t)
	s.cpus.release(cpu)
	t.CPU = NoCPU

	var next *Task
	if s.policy.Partitioned() {
		next = s.waiting.First(func(w *Task) bool { return w.Home == cpu })
	} else {
		next = s.waiting.Head()
	}
	if next != nil {
		s.waiting.Remove(next)
		s.assign(next, cpu)
	}
	return cpu, next
}

// migrate moves the execution context of id to cpu. It must be called
// without s.mu. On failure a task still holding cpu is returned to the
// waiting set and cpu is released.
func (s *Scheduler) migrate(ctx context.Context, id TaskID, cpu int) error {
	err := s.migrator.Migrate(ctx, id, cpu)

	s.mu.Lock()
	t, gerr := s.registry.Get(id)
	if err == nil {
		if gerr == nil {
			t.LastCPU = cpu
		}
		s.mu.Unlock()
		s.emit(Event{Kind: EventMigrate, TaskID: id, CPU: cpu})
		return nil
	}
	rolledBack := false
	if gerr == nil && t.Member == InRunning && t.CPU == cpu {
		s.running.Remove(t)
		s.cpus.release(cpu)
		t.CPU = NoCPU
		s.waiting.Insert(t)
		rolledBack = true
	}
	s.mu.Unlock()

	s.log.Error("migration failed", "task", id, "cpu", cpu, "rolled_back", rolledBack, "err", err)
	s.emit(Event{Kind: EventMigrateFailed, TaskID: id, CPU: cpu})
	return err
}

func placementOf(t *Task) Placement {
	if t.Member == InRunning {
		return Placement{CPU: t.CPU}
	}
	return Placement{CPU: NoCPU, Waiting: t.Member == InWaiting}
}

// CPUState is one row of the occupancy table.
type CPUState struct {
	Occupied bool
	Task     TaskID
}

// Snapshot is a consistent copy of the scheduler state.
type Snapshot struct {
	CPUs    []CPUState
	Running []TaskID // most eligible first
	Waiting []TaskID // most eligible first
}

// Snapshot copies the running set, waiting set and occupancy table.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{CPUs: make([]CPUState, s.cpus.size())}
	for cpu := range snap.CPUs {
		snap.CPUs[cpu] = CPUState{Occupied: s.cpus.occupied[cpu], Task: s.cpus.owner[cpu]}
	}
	for _, t := range s.running.Tasks() {
		snap.Running = append(snap.Running, t.ID)
	}
	for _, t := range s.waiting.Tasks() {
		snap.Waiting = append(snap.Waiting, t.ID)
	}
	return snap
}

// Task returns a copy of the control block of id.
func (s *Scheduler) Task(id TaskID) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.registry.Get(id)
	if err != nil {
		return Task{}, err
	}
	return *t, nil
}

// Tasks returns copies of every registered task in id order.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, s.registry.Len())
	s.registry.Each(func(t *Task) { out = append(out, *t) })
	return out
}
