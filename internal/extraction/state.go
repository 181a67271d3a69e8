package extraction

import (
	"fmt"
	"time"
)

// Phase is the controller's position in a run.
type Phase int

const (
	Idle Phase = iota
	Attempting
	Retrying
	Succeeded
	Exhausted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Attempting:
		return "attempting"
	case Retrying:
		return "retrying"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transitions can follow.
func (p Phase) Terminal() bool {
	return p == Succeeded || p == Exhausted
}

// State is a phase plus the attempt it refers to. Attempt is zero for Idle.
type State struct {
	Phase   Phase
	Attempt int
}

func (s State) String() string {
	switch s.Phase {
	case Attempting, Retrying:
		return fmt.Sprintf("%s(%d)", s.Phase, s.Attempt)
	default:
		return s.Phase.String()
	}
}

// Attempt records one call to the structuring client.
type Attempt struct {
	Index    int // 1-based
	Started  time.Time
	Duration time.Duration
	Payload  string
	Err      error
}

// Observer receives every state transition of a run. Delay is the wait that
// follows a Retrying state and zero otherwise. attempt is nil for
// transitions not caused by an attempt and must not be retained.
// Implementations must not block.
type Observer interface {
	Transition(from, to State, attempt *Attempt, delay time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(from, to State, attempt *Attempt, delay time.Duration)

func (f ObserverFunc) Transition(from, to State, attempt *Attempt, delay time.Duration) {
	f(from, to, attempt, delay)
}

// Observers fans transitions out to each non-nil observer in order.
type Observers []Observer

func (o Observers) Transition(from, to State, attempt *Attempt, delay time.Duration) {
	for _, obs := range o {
		if obs != nil {
			obs.Transition(from, to, attempt, delay)
		}
	}
}
