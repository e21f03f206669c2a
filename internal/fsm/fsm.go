// Package fsm holds the capture/response cycle transition table.
package fsm

import (
	"fmt"
	"strings"
)

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateResponding   State = "responding"
)

const (
	EventPress       Event = "press"
	EventRelease     Event = "release"
	EventTranscribed Event = "transcribed"
	EventResponded   Event = "responded"
	EventAbort       Event = "abort"
)

// Transition returns the next state for event, or an error when the table has no edge.
// Abort only leaves recording and transcribing; a started response always completes.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventPress:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventRelease:
			return StateTranscribing, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventTranscribed:
			return StateResponding, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateResponding:
		switch event {
		case EventResponded:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Tag renders the state in the upper-case form host consumers match on.
func (s State) Tag() string {
	if s == "" {
		return strings.ToUpper(string(StateIdle))
	}
	return strings.ToUpper(string(s))
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
