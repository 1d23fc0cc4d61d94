package events

const (
	// KindOpened identifies a completed session setup.
	KindOpened Kind = "connection.opened"
	// KindError identifies a transport failure.
	KindError Kind = "connection.error"
	// KindClosed identifies the end of the connection.
	KindClosed Kind = "connection.closed"
)

// Opened marks that the remote service is ready to receive audio.
type Opened struct{ Base }

// NewOpened creates a connection opened event.
func NewOpened() Opened {
	return Opened{Base: NewBase(KindOpened)}
}

// Error carries a transport failure.
type Error struct {
	Base
	Reason string
	Err    error
}

// NewError creates a connection error event.
func NewError(reason string, err error) Error {
	return Error{Base: NewBase(KindError), Reason: reason, Err: err}
}

func (e Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Reason
	case e.Reason == "":
		return e.Err.Error()
	default:
		return e.Reason + ": " + e.Err.Error()
	}
}

func (e Error) Unwrap() error { return e.Err }

// Closed marks the end of the connection.
type Closed struct {
	Base
	Reason string
}

// NewClosed creates a connection closed event.
func NewClosed(reason string) Closed {
	return Closed{Base: NewBase(KindClosed), Reason: reason}
}
