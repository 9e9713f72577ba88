package job

import (
	"rtsched/internal/sched"
)

// Job is one activation of a periodic task.
type Job struct {
	Task      sched.TaskID
	Release   int64
	Deadline  int64 // absolute
	Remaining int64
	Finish    int64
}

// Stats accumulates per-task outcomes.
type Stats struct {
	Released  int
	Completed int
	Missed    int // finished after the deadline
	Overruns  int // released while the previous job was still active
}

// Tracker records job budgets and deadline misses. The scheduler never
// aborts a late job; it is only counted here.
type Tracker struct {
	active map[sched.TaskID]*Job
	stats  map[sched.TaskID]*Stats
}

func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[sched.TaskID]*Job),
		stats:  make(map[sched.TaskID]*Stats),
	}
}

func (t *Tracker) stat(id sched.TaskID) *Stats {
	st, ok := t.stats[id]
	if !ok {
		st = &Stats{}
		t.stats[id] = st
	}
	return st
}

// Release starts a new job at now. It returns false, and counts an overrun
// and a miss, when the previous job has not finished yet.
func (t *Tracker) Release(id sched.TaskID, now int64, p sched.Params) bool {
	st := t.stat(id)
	if _, busy := t.active[id]; busy {
		st.Overruns++
		st.Missed++
		return false
	}
	t.active[id] = &Job{Task: id, Release: now, Deadline: now + p.D, Remaining: p.C}
	st.Released++
	return true
}

// Run charges one time unit to the active job of id and reports whether
// its budget is spent.
func (t *Tracker) Run(id sched.TaskID) bool {
	j, ok := t.active[id]
	if !ok {
		return false
	}
	if j.Remaining > 0 {
		j.Remaining--
	}
	return j.Remaining == 0
}

// Finish closes the active job of id at now.
func (t *Tracker) Finish(id sched.TaskID, now int64) (Job, bool) {
	j, ok := t.active[id]
	if !ok {
		return Job{}, false
	}
	delete(t.active, id)
	j.Finish = now
	st := t.stat(id)
	st.Completed++
	if now > j.Deadline {
		st.Missed++
	}
	return *j, true
}

// Active returns the unfinished job of id.
func (t *Tracker) Active(id sched.TaskID) (Job, bool) {
	j, ok := t.active[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Stats returns a copy of the counters of id.
func (t *Tracker) Stats(id sched.TaskID) Stats {
	if st, ok := t.stats[id]; ok {
		return *st
	}
	return Stats{}
}
