package sched

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// queueKey is used as a key in the red-black tree. seq breaks ties between
// equal eligibility keys in insertion order.
type queueKey struct {
	eligibility int64
	seq         uint64
}

// OrderedQueue keeps tasks sorted by eligibility, most eligible first. One
// queue backs the running set and another the waiting set; kind records which
// membership the queue grants.
type OrderedQueue struct {
	kind Membership
	tree *redblacktree.Tree
	seq  uint64
}

// NewOrderedQueue builds a queue sorted under order.
func NewOrderedQueue(kind Membership, order Order) *OrderedQueue {
	return &OrderedQueue{
		kind: kind,
		tree: redblacktree.NewWith(keyComparator(order)),
	}
}

func keyComparator(order Order) func(a, b any) int {
	return func(a, b any) int {
		ka, kb := a.(queueKey), b.(queueKey)
		if c := order.Compare(ka.eligibility, kb.eligibility); c != 0 {
			return c
		}
		switch {
		case ka.seq < kb.seq:
			return -1
		case ka.seq > kb.seq:
			return 1
		default:
			return 0
		}
	}
}

// Insert adds t behind every task of equal eligibility and reports whether
// t was inserted. A task that is already a member of this or any other queue
// is left where it is; callers move a task by removing it first.
func (q *OrderedQueue) Insert(t *Task) bool {
	if t.Member != InNone {
		return false
	}
	q.seq++
	t.key = queueKey{eligibility: t.Eligibility, seq: q.seq}
	t.Member = q.kind
	q.tree.Put(t.key, t)
	return true
}

// Remove takes t out of the queue; absent tasks are ignored.
func (q *OrderedQueue) Remove(t *Task) bool {
	if t.Member != q.kind {
		return false
	}
	q.tree.Remove(t.key)
	t.Member = InNone
	return true
}

// Head returns the most eligible task, or nil.
func (q *OrderedQueue) Head() *Task {
	if n := q.tree.Left(); n != nil {
		return n.Value.(*Task)
	}
	return nil
}

// Tail returns the least eligible task, or nil.
func (q *OrderedQueue) Tail() *Task {
	if n := q.tree.Right(); n != nil {
		return n.Value.(*Task)
	}
	return nil
}

// First returns the most eligible task accepted by match, or nil.
func (q *OrderedQueue) First(match func(t *Task) bool) *Task {
	it := q.tree.Iterator()
	for it.Next() {
		t := it.Value().(*Task)
		if match(t) {
			return t
		}
	}
	return nil
}

// Len returns the number of queued tasks.
func (q *OrderedQueue) Len() int { return q.tree.Size() }

// Tasks returns the queued tasks in order.
func (q *OrderedQueue) Tasks() []*Task {
	out := make([]*Task, 0, q.tree.Size())
	for _, v := range q.tree.Values() {
		out = append(out, v.(*Task))
	}
	return out
}
