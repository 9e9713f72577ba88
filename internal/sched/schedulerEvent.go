// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventSubmit EventKind = iota
	EventPlace
	EventPreempt
	EventWait
	EventComplete
	EventPromote
	EventMigrate
	EventMigrateFailed
	EventDegrade
	EventWithdraw
)

// Event is emitted on every state change of the scheduler.
type Event struct {
	Time   time.Time
	Kind   EventKind
	TaskID TaskID
	CPU    int
	// Other is the task on the other side of a preemption.
	Other TaskID
}

func (k EventKind) String() string {
	switch k {
	case EventSubmit:
		return "Submit"
	case EventPlace:
		return "Place"
	case EventPreempt:
		return "Preempt"
	case EventWait:
		return "Wait"
	case EventComplete:
		return "Complete"
	case EventPromote:
		return "Promote"
	case EventMigrate:
		return "Migrate"
	case EventMigrateFailed:
		return "MigrateFailed"
	case EventDegrade:
		return "Degrade"
	case EventWithdraw:
		return "Withdraw"
	default:
		return "Unknown"
	}
}
