package stream

// State is the connection state of the stream client.
//
//	Connecting --open--> Open --error--> Reconnecting --delay--> Connecting
//	Connecting --error--> Reconnecting
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
