package bridge

// LinkState is the lifecycle of a Session.
type LinkState int

const (
	Unestablished LinkState = iota
	Handshaking
	Ready
	Closed
	Failed
)

func (s LinkState) String() string {
	switch s {
	case Unestablished:
		return "unestablished"
	case Handshaking:
		return "handshaking"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
