package crawler

// State is the position of an Engine in its lifecycle.
type State int

const (
	// StateUnauthenticated is the initial state.
	StateUnauthenticated State = iota

	// StateAuthenticated means the browser runs and the stored session,
	// if any, has been applied.
	StateAuthenticated

	// StateAwaitingManualAuth means the engine is suspended until the
	// ResumeFunc returns.
	StateAwaitingManualAuth

	// StateNavigated means the content surface is loaded.
	StateNavigated

	// StateDiscovering means scroll passes are in progress.
	StateDiscovering

	// StateDone means the iteration budget was exhausted.
	StateDone

	// StateFailed means the engine stopped on an error.
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateAwaitingManualAuth:
		return "awaiting-manual-auth"
	case StateNavigated:
		return "navigated"
	case StateDiscovering:
		return "discovering"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
