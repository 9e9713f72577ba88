package sched

import (
	"fmt"
	"math"
)

// TaskID uniquely identifies a task in the scheduler. It doubles as the index
// of the task's slot in the Registry.
type TaskID uint32

// NoCPU marks a task that holds no CPU.
const NoCPU = -1

// Membership tells which ordered set a task currently belongs to.
type Membership int

const (
	InNone Membership = iota
	InRunning
	InWaiting
)

func (m Membership) String() string {
	switch m {
	case InNone:
		return "none"
	case InRunning:
		return "running"
	case InWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Class is the scheduling class a task ends up in after admission.
type Class int

const (
	ClassRealTime Class = iota
	ClassBestEffort
)

func (c Class) String() string {
	if c == ClassBestEffort {
		return "best-effort"
	}
	return "real-time"
}

// Params are the timing parameters supplied at submission.
type Params struct {
	C        int64  // worst-case execution time
	T        int64  // period, 0 for aperiodic
	D        int64  // relative deadline
	Priority int64  // static priority, higher is more eligible
	Affinity uint64 // CPU mask, 0 means every CPU
}

// Utilization returns C/T, or 0 for aperiodic tasks.
func (p Params) Utilization() float64 {
	if p.T == 0 {
		return 0
	}
	return float64(p.C) / float64(p.T)
}

// Validate rejects parameters that would make the comparators or the
// response-time recurrence meaningless. Zero periods are accepted only when
// allowAperiodic is set.
func (p Params) Validate(allowAperiodic bool) error {
	switch {
	case p.C <= 0:
		return fmt.Errorf("%w: computation time %d", ErrInvalidTiming, p.C)
	case p.T < 0, p.T == 0 && !allowAperiodic:
		return fmt.Errorf("%w: period %d", ErrInvalidTiming, p.T)
	case p.D <= 0:
		return fmt.Errorf("%w: deadline %d", ErrInvalidTiming, p.D)
	}
	return nil
}

// Task is the per-task scheduling control block.
type Task struct {
	ID     TaskID
	Params Params

	// Eligibility is the key used by the ordered sets. It only changes while
	// the task is in neither set.
	Eligibility int64
	// Pinned tasks keep maximum eligibility for their whole lifetime.
	Pinned bool

	CPU     int // logical CPU in the running set, NoCPU otherwise
	LastCPU int // CPU the execution context was last moved to
	Home    int // fixed CPU for partitioned tasks, NoCPU otherwise
	Member  Membership
	Class   Class

	key queueKey // key under which the task sits in its current set
}

func newTask(id TaskID, p Params) Task {
	return Task{
		ID:      id,
		Params:  p,
		CPU:     NoCPU,
		LastCPU: NoCPU,
		Home:    NoCPU,
	}
}

// Order is the direction in which eligibility keys are sorted.
type Order int

const (
	// Ascending puts the smallest key first (deadlines).
	Ascending Order = iota
	// Descending puts the largest key first (priorities).
	Descending
)

// Max returns the most eligible key representable under the order.
func (o Order) Max() int64 {
	if o == Ascending {
		return math.MinInt64
	}
	return math.MaxInt64
}

// Compare returns a negative number when a is more eligible than b.
func (o Order) Compare(a, b int64) int {
	switch {
	case a == b:
		return 0
	case (a < b) == (o == Ascending):
		return -1
	default:
		return 1
	}
}
