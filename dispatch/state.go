package dispatch

import (
	"fmt"
	"log/slog"
)

// State is the dispatcher's position while answering one question.
type State string

const (
	AwaitingQuestion  State = "AWAITING_QUESTION"
	RunningCapability State = "RUNNING_CAPABILITY"
	RunningPattern    State = "RUNNING_PATTERN"
	Done              State = "DONE"
	Failed            State = "FAILED"
)

// transitions lists the allowed next states. DONE and FAILED are terminal.
var transitions = map[State][]State{
	AwaitingQuestion:  {RunningCapability, RunningPattern, Failed},
	RunningCapability: {Done, RunningPattern},
	RunningPattern:    {Done, Failed},
}

func isAllowedTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return len(transitions[s]) == 0 }

// machine records every state it passes through.
type machine struct {
	path   []State
	logger *slog.Logger
}

func newMachine(logger *slog.Logger) *machine {
	return &machine{path: []State{AwaitingQuestion}, logger: logger}
}

func (m *machine) current() State { return m.path[len(m.path)-1] }

// to moves to next. A disallowed move is a programming error in the
// dispatcher and is returned rather than applied.
func (m *machine) to(next State) error {
	cur := m.current()
	if !isAllowedTransition(cur, next) {
		return fmt.Errorf("disallowed transition: %s -> %s", cur, next)
	}
	m.path = append(m.path, next)
	m.logger.Debug("dispatch transition", "from", cur, "to", next)
	return nil
}

func (m *machine) recorded() []State {
	return append([]State(nil), m.path...)
}

// passed reports whether s was visited.
func (m *machine) passed(s State) bool {
	for _, p := range m.path {
		if p == s {
			return true
		}
	}
	return false
}
