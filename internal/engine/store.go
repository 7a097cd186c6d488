package engine

import (
	"sync"

	"stakeboard/internal/domain"
)

// Listener observes every state change. It runs under the store lock in
// dispatch order and must not call back into the store.
type Listener func(next domain.State)

// Store is the single writer around the reducer: one transition in flight at
// a time. Snapshots returned by State share slices with the store; the reducer
// only ever replaces them, so readers must treat them as read-only.
type Store struct {
	Engine Engine

	mu        sync.Mutex
	state     domain.State
	listeners []Listener
}

func NewStore(e Engine, initial domain.State) *Store {
	return &Store{Engine: e, state: initial}
}

// State returns the current snapshot.
func (s *Store) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener and returns a function removing it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// Dispatch applies the action and reports whether the state changed. Listeners
// are only notified on change.
func (s *Store) Dispatch(a Action) (domain.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.Engine.apply(s.state, a)
	if !changed {
		return s.state, false
	}
	s.commit(next)
	return next, true
}

// DispatchIf runs check against the current state and applies the action only
// when check returns nil. Both happen under the same lock.
func (s *Store) DispatchIf(check func(domain.State) error, a Action) (domain.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := check(s.state); err != nil {
		return s.state, false, err
	}
	next, changed := s.Engine.apply(s.state, a)
	if !changed {
		return s.state, false, nil
	}
	s.commit(next)
	return next, true, nil
}

// DispatchAll applies the actions in order as one transition. Listeners see
// only the final state.
func (s *Store) DispatchAll(actions ...Action) (domain.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.state, false
	for _, a := range actions {
		var ok bool
		next, ok = s.Engine.apply(next, a)
		changed = changed || ok
	}
	if !changed {
		return s.state, false
	}
	s.commit(next)
	return next, true
}

func (s *Store) commit(next domain.State) {
	s.state = next
	for _, l := range s.listeners {
		if l != nil {
			l(next)
		}
	}
}

func (s *Store) FindPerson(id string) (domain.Person, bool) {
	return FindPerson(s.State(), id)
}

func (s *Store) FindTask(id string) (domain.Task, bool) {
	return FindTask(s.State(), id)
}

func (s *Store) FindRequirement(id string) (domain.Requirement, bool) {
	return FindRequirement(s.State(), id)
}

func (s *Store) RequirementsByStakeholder(personID string) []domain.Requirement {
	return RequirementsByStakeholder(s.State(), personID)
}

func (s *Store) TasksByPerson(personID string, role domain.PersonRole) []domain.Task {
	return TasksByPerson(s.State(), personID, role)
}
