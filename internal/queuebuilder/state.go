package queuebuilder

// State is the worker's position in its loop. There is no terminal state.
type State int

const (
	Fresh State = iota
	EmptyQueue
	Locked
	InProgress
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case EmptyQueue:
		return "empty_queue"
	case Locked:
		return "locked"
	case InProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

// Observation is what one iteration learned about the queue.
type Observation int

const (
	// ObsLocked means the lock flag is set.
	ObsLocked Observation = iota
	// ObsLockError means the lock flag could not be read.
	ObsLockError
	// ObsQueueError means the pending count could not be read.
	ObsQueueError
	// ObsEmpty means nothing is pending.
	ObsEmpty
	// ObsPending means at least one item is pending.
	ObsPending
)

func (o Observation) String() string {
	switch o {
	case ObsLocked:
		return "locked"
	case ObsLockError:
		return "lock_error"
	case ObsQueueError:
		return "queue_error"
	case ObsEmpty:
		return "empty"
	case ObsPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Next returns the state that follows s after observing o. Errors leave the
// state unchanged.
func Next(s State, o Observation) State {
	switch o {
	case ObsLocked:
		return Locked
	case ObsEmpty:
		return EmptyQueue
	case ObsPending:
		return InProgress
	default:
		// ObsLockError, ObsQueueError
		return s
	}
}

// sleepsBefore reports whether an iteration starting in s waits first.
func sleepsBefore(s State) bool {
	return s != InProgress
}
