package session

// State is the join protocol state of a session
type State int

const (
	StateUnjoined State = iota
	StateJoining
	StateJoined
	StateLeft
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}
