package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func queued(id TaskID, eligibility int64) *Task {
	t := newTask(id, Params{C: 1, T: 10, D: 10})
	t.Eligibility = eligibility
	return &t
}

func ids(tasks []*Task) []TaskID {
	out := make([]TaskID, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestOrderedQueue_DeadlineOrder(t *testing.T) {
	q := NewOrderedQueue(InWaiting, Ascending)
	q.Insert(queued(1, 10))
	q.Insert(queued(2, 5))
	q.Insert(queued(3, 7))

	assert.Equal(t, []TaskID{2, 3, 1}, ids(q.Tasks()))
	assert.Equal(t, TaskID(2), q.Head().ID)
	assert.Equal(t, TaskID(1), q.Tail().ID)
	assert.Equal(t, 3, q.Len())
}

func TestOrderedQueue_PriorityOrderIsStable(t *testing.T) {
	q := NewOrderedQueue(InRunning, Descending)
	q.Insert(queued(1, 3))
	q.Insert(queued(2, 5))
	q.Insert(queued(3, 3))
	q.Insert(queued(4, 5))

	assert.Equal(t, []TaskID{2, 4, 1, 3}, ids(q.Tasks()))
	assert.Equal(t, TaskID(3), q.Tail().ID)
}

func TestOrderedQueue_InsertRemove(t *testing.T) {
	q := NewOrderedQueue(InWaiting, Ascending)
	a := queued(1, 4)

	assert.True(t, q.Insert(a))
	assert.Equal(t, InWaiting, a.Member)
	assert.False(t, q.Insert(a), "second insert is a no-op")
	assert.Equal(t, 1, q.Len())

	assert.True(t, q.Remove(a))
	assert.Equal(t, InNone, a.Member)
	assert.False(t, q.Remove(a), "removing an absent task is a no-op")
	assert.Nil(t, q.Head())
	assert.Nil(t, q.Tail())
}

func TestOrderedQueue_TaskBelongsToOneQueue(t *testing.T) {
	run := NewOrderedQueue(InRunning, Descending)
	wait := NewOrderedQueue(InWaiting, Descending)
	task := queued(1, 5)

	assert.True(t, wait.Insert(task))
	assert.False(t, run.Insert(task), "a waiting task cannot join the running set")
	assert.Equal(t, InWaiting, task.Member)
	assert.Zero(t, run.Len())
	assert.False(t, run.Remove(task))

	assert.True(t, wait.Remove(task))
	assert.Zero(t, wait.Len())
	assert.Nil(t, wait.Head())

	assert.True(t, run.Insert(task))
	assert.Equal(t, InRunning, task.Member)
	assert.Equal(t, 1, run.Len())
}

func TestOrderedQueue_RemoveKeepsOrder(t *testing.T) {
	q := NewOrderedQueue(InWaiting, Descending)
	tasks := []*Task{queued(1, 1), queued(2, 2), queued(3, 2), queued(4, 9)}
	for _, task := range tasks {
		q.Insert(task)
	}
	q.Remove(tasks[1])

	assert.Equal(t, []TaskID{4, 3, 1}, ids(q.Tasks()))
}

func TestOrderedQueue_First(t *testing.T) {
	q := NewOrderedQueue(InWaiting, Descending)
	q.Insert(queued(1, 9))
	q.Insert(queued(2, 5))
	q.Insert(queued(3, 7))

	got := q.First(func(t *Task) bool { return t.ID != 1 })
	if assert.NotNil(t, got) {
		assert.Equal(t, TaskID(3), got.ID)
	}
	assert.Nil(t, q.First(func(*Task) bool { return false }))
}

func TestOrder(t *testing.T) {
	assert.Equal(t, -1, Ascending.Compare(1, 2))
	assert.Equal(t, 1, Ascending.Compare(2, 1))
	assert.Equal(t, 0, Ascending.Compare(2, 2))
	assert.Equal(t, -1, Descending.Compare(2, 1))
	assert.Equal(t, 1, Descending.Compare(1, 2))

	assert.Equal(t, -1, Ascending.Compare(Ascending.Max(), -1<<40))
	assert.Equal(t, -1, Descending.Compare(Descending.Max(), 1<<40))
}
