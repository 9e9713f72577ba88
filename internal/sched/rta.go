package sched

import (
	"fmt"
	"log/slog"
	"sync"

	"rtsched/internal/logging"
)

// Overhead holds the fixed scheduling costs charged by the response-time test.
type Overhead struct {
	PerCPU  int64 `yaml:"per_cpu"`
	PerTask int64 `yaml:"per_task"` // charged once per task sharing the CPU
}

type placed struct {
	id     TaskID
	params Params
}

// Analyzer performs response-time analysis and first-fit partitioning of
// fixed-priority tasks.
//
// The test is a single pass over a window equal to the analysed task's
// relative deadline, not the least fixed point of the busy-period
// recurrence. It is conservative but not exact.
type Analyzer struct {
	mu       sync.Mutex
	overhead Overhead
	parts    [][]placed
	where    map[TaskID]int
	log      *slog.Logger
}

// NewAnalyzer creates an analyzer for nrCPU empty partitions. A count below
// one is treated as one.
func NewAnalyzer(nrCPU int, overhead Overhead, log *slog.Logger) *Analyzer {
	if nrCPU <= 0 {
		nrCPU = 1
	}
	return &Analyzer{
		overhead: overhead,
		parts:    make([][]placed, nrCPU),
		where:    make(map[TaskID]int),
		log:      logging.Component(log, "analyzer"),
	}
}

// interference bounds the demand of task k inside a window of length l.
func interference(l int64, k Params) int64 {
	f := l / k.T
	if l < f*k.T+k.C {
		return k.C * (f + 1)
	}
	return l - f*(k.T-k.C)
}

// responseTime estimates the response time of p on cpu against every other
// task of equal or higher priority already there, plus an optional extra
// interfering task.
func (a *Analyzer) responseTime(self TaskID, p Params, cpu int, extra *Params) int64 {
	window := p.D
	r := p.C + a.overhead.PerCPU
	n := int64(0)
	for _, k := range a.parts[cpu] {
		if k.id == self || k.params.Priority < p.Priority {
			continue
		}
		r += interference(window, k.params)
		n++
	}
	if extra != nil {
		r += interference(window, *extra)
		n++
	}
	return r + a.overhead.PerTask*(n+1)
}

func allowed(mask uint64, cpu int) bool {
	if mask == 0 {
		return true
	}
	return cpu < 64 && mask&(1<<uint(cpu)) != 0
}

// fits runs both checks of the first-fit scan for a new task on cpu.
func (a *Analyzer) fits(id TaskID, p Params, cpu int) bool {
	if r := a.responseTime(id, p, cpu, nil); r > p.D {
		return false
	}
	for _, k := range a.parts[cpu] {
		if k.params.Priority > p.Priority {
			continue
		}
		if r := a.responseTime(k.id, k.params, cpu, &p); r > k.params.D {
			return false
		}
	}
	return true
}

// Partition places the task on the first admissible CPU and reports it.
// Partitioning an already placed task returns its current CPU.
func (a *Analyzer) Partition(id TaskID, p Params) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cpu, ok := a.where[id]; ok {
		return cpu, true
	}
	if p.T <= 0 {
		return NoCPU, false
	}
	for cpu := range a.parts {
		if !allowed(p.Affinity, cpu) || !a.fits(id, p, cpu) {
			continue
		}
		a.parts[cpu] = append(a.parts[cpu], placed{id: id, params: p})
		a.where[id] = cpu
		a.log.Debug("partitioned task", "task", id, "cpu", cpu)
		return cpu, true
	}
	a.log.Warn("no cpu passes response-time analysis", "task", id, "c", p.C, "t", p.T, "d", p.D)
	return NoCPU, false
}

// Remove drops the task from its partition.
func (a *Analyzer) Remove(id TaskID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cpu, ok := a.where[id]
	if !ok {
		return
	}
	part := a.parts[cpu]
	for i := range part {
		if part[i].id == id {
			a.parts[cpu] = append(part[:i], part[i+1:]...)
			break
		}
	}
	delete(a.where, id)
}

// ResponseTime returns the current estimate for a placed task.
func (a *Analyzer) ResponseTime(id TaskID) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cpu, ok := a.where[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d is not partitioned", ErrUnknownTask, id)
	}
	for _, k := range a.parts[cpu] {
		if k.id == id {
			return a.responseTime(id, k.params, cpu, nil), nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownTask, id)
}

// Partitions returns the task ids bound to each CPU in placement order.
func (a *Analyzer) Partitions() [][]TaskID {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([][]TaskID, len(a.parts))
	for cpu, part := range a.parts {
		out[cpu] = make([]TaskID, 0, len(part))
		for _, k := range part {
			out[cpu] = append(out[cpu], k.id)
		}
	}
	return out
}
