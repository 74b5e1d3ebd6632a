package conversation

import "fmt"

// Signal is the agent's opinion on whether the conversation is done.
type Signal string

const (
	SignalContinue Signal = "continue"
	SignalComplete Signal = "complete"
)

// ParseSignal validates an agent signal.
func ParseSignal(s string) (Signal, error) {
	switch Signal(s) {
	case SignalContinue, SignalComplete:
		return Signal(s), nil
	default:
		return "", fmt.Errorf("unknown agent signal %q", s)
	}
}

// NextStatus returns the status after a successful turn. A turn always moves
// a PENDING thread forward; COMPLETED only follows a complete signal. A
// proposal that would move the status backward leaves it unchanged.
func NextStatus(current Status, signal Signal) Status {
	proposed := StatusInProgress
	if signal == SignalComplete {
		proposed = StatusCompleted
	}
	return advance(current, proposed)
}

func advance(current, proposed Status) Status {
	if proposed.rank() < current.rank() {
		return current
	}
	return proposed
}
