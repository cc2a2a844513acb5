package statemachine

import (
	"strings"
)

// Actor identifies who requests a transition
type Actor string

const (
	ActorUser   Actor = "user"
	ActorVendor Actor = "vendor"
	ActorAdmin  Actor = "admin"
)

// Transition defines a valid state change and who can perform it
type Transition[S ~string] struct {
	From  S     `json:"from"`
	To    S     `json:"to"`
	Actor Actor `json:"actor"`
}

// transitionKey is used to look up valid transitions quickly
type transitionKey[S ~string] struct {
	From  S
	To    S
	Actor Actor
}

// Machine is an actor-aware transition table.
type Machine[S ~string] struct {
	name        string
	transitions []Transition[S]
	allowed     map[transitionKey[S]]bool
}

func New[S ~string](name string, transitions []Transition[S]) *Machine[S] {
	m := &Machine[S]{
		name:        name,
		transitions: transitions,
		allowed:     make(map[transitionKey[S]]bool, len(transitions)),
	}
	for _, t := range transitions {
		m.allowed[transitionKey[S]{t.From, t.To, t.Actor}] = true
	}
	return m
}

func (m *Machine[S]) Name() string {
	return m.name
}

// CanTransition checks if a given actor can move from one state to another
func (m *Machine[S]) CanTransition(from, to S, actor Actor) error {
	if m.allowed[transitionKey[S]{from, to, actor}] {
		return nil
	}
	valid := m.ValidTransitionsFrom(from)
	names := make([]string, len(valid))
	for i, s := range valid {
		names[i] = string(s)
	}
	return &TransitionError{
		Machine: m.name,
		From:    string(from),
		To:      string(to),
		Actor:   actor,
		Valid:   names,
	}
}

// ValidTransitionsFrom returns all valid next states from a given state
func (m *Machine[S]) ValidTransitionsFrom(status S) []S {
	return m.collect(status, func(Transition[S]) bool { return true })
}

// ValidTransitionsFor returns the next states a specific actor may choose.
func (m *Machine[S]) ValidTransitionsFor(status S, actor Actor) []S {
	return m.collect(status, func(t Transition[S]) bool { return t.Actor == actor })
}

func (m *Machine[S]) collect(status S, keep func(Transition[S]) bool) []S {
	nexts := []S{}
	seen := map[S]bool{}
	for _, t := range m.transitions {
		if t.From == status && keep(t) && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// IsTerminal reports whether no actor can leave the state.
func (m *Machine[S]) IsTerminal(status S) bool {
	for _, t := range m.transitions {
		if t.From == status {
			return false
		}
	}
	return true
}

// Transitions returns the full table for documentation
func (m *Machine[S]) Transitions() []Transition[S] {
	out := make([]Transition[S], len(m.transitions))
	copy(out, m.transitions)
	return out
}

// TransitionError describes a rejected transition.
type TransitionError struct {
	Machine string
	From    string
	To      string
	Actor   Actor
	Valid   []string
}

func (e *TransitionError) Error() string {
	valid := "none (terminal state)"
	if len(e.Valid) > 0 {
		valid = strings.Join(e.Valid, ", ")
	}
	return "invalid " + e.Machine + " transition: " + e.From + " → " + e.To +
		" is not allowed for actor '" + string(e.Actor) + "'. " +
		"Valid transitions from " + e.From + " are: " + valid
}
