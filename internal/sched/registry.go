package sched

import "fmt"

// Registry is a fixed-capacity arena of task control blocks indexed by TaskID.
// It is not safe for concurrent use; the Scheduler guards it with its lock.
type Registry struct {
	slots []Task
	used  []bool
	count int
}

// NewRegistry creates a registry able to hold ids in [0, capacity).
func NewRegistry(capacity int) *Registry {
	return &Registry{
		slots: make([]Task, capacity),
		used:  make([]bool, capacity),
	}
}

// Cap returns the size of the id space.
func (r *Registry) Cap() int { return len(r.slots) }

// Len returns the number of slots in use.
func (r *Registry) Len() int { return r.count }

// Add claims the slot of id. The second result is false if the slot was
// already in use, in which case the existing task is returned untouched.
func (r *Registry) Add(id TaskID, p Params) (*Task, bool, error) {
	if int(id) >= len(r.slots) {
		return nil, false, fmt.Errorf("%w: task %d outside capacity %d", ErrCapacity, id, len(r.slots))
	}
	if r.used[id] {
		return &r.slots[id], false, nil
	}
	r.slots[id] = newTask(id, p)
	r.used[id] = true
	r.count++
	return &r.slots[id], true, nil
}

// Get returns the task stored under id.
func (r *Registry) Get(id TaskID) (*Task, error) {
	if int(id) >= len(r.slots) || !r.used[id] {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	return &r.slots[id], nil
}

// Remove frees the slot of id.
func (r *Registry) Remove(id TaskID) {
	if int(id) >= len(r.slots) || !r.used[id] {
		return
	}
	r.slots[id] = Task{}
	r.used[id] = false
	r.count--
}

// Each calls fn for every task in id order.
func (r *Registry) Each(fn func(t *Task)) {
	for i := range r.slots {
		if r.used[i] {
			fn(&r.slots[i])
		}
	}
}
