package executor

// State tracks the lifecycle of a scheduled hour.
//
//	PENDING -> ACTIVE -> COMPLETED
//	PENDING -> OVERRIDDEN
//
// An entry becomes ACTIVE when its hour begins and COMPLETED when a stop
// condition is met or the hour ends. OVERRIDDEN means a recompute replaced
// the entry before it ever became active.
type State int

const (
	StatePending State = iota
	StateActive
	StateCompleted
	StateOverridden
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateOverridden:
		return "overridden"
	default:
		return "unknown"
	}
}
