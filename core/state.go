package live

// State is the lifecycle position of a Session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
	StateClosed     State = "closed"
	StateFailed     State = "failed"
)

func (s State) String() string { return string(s) }

// IsLive reports whether an attempt is in progress.
func (s State) IsLive() bool {
	return s == StateConnecting || s == StateOpen
}

// StateChange describes one transition.
type StateChange struct {
	From State
	To   State
}
