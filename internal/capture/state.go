package capture

// State is the authoritative position of the capture flow. Every transition
// goes through the controller; handlers never branch on raw image presence.
type State int

const (
	StateAwaitingFrontCapture State = iota
	StateAwaitingBackCapture
	StateInterpreting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingFrontCapture:
		return "awaiting_front_capture"
	case StateAwaitingBackCapture:
		return "awaiting_back_capture"
	case StateInterpreting:
		return "interpreting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
