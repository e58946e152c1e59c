package core

import "sync"

// Reducer derives the next run state from the previous one. Reducers must be
// pure: no I/O, no mutation of prev (Clone first, or use the helpers in this
// package). Commits are serialized by the StateManager, so a reducer always
// sees the state current at the moment it commits, never a stale snapshot.
type Reducer func(prev ResearchRunState) ResearchRunState

// Observer receives a deep snapshot of the run state after every commit.
// It is a pure consumer and exerts no control over the run.
type Observer func(state ResearchRunState)

// StateManager is the single owner of a ResearchRunState. All writers
// (controller and tool executors) express mutation as Reducer commits applied
// atomically under one mutex, so concurrent fetch completions compose safely
// without each holding its own lock discipline.
//
// Once a commit transitions IsRunning from true to false the state is frozen:
// later commits for that run are ignored until Begin starts the next run.
type StateManager struct {
	mu       sync.Mutex
	state    ResearchRunState
	frozen   bool
	observer Observer
}

// NewStateManager creates a manager holding an idle, empty state.
func NewStateManager() *StateManager {
	return &StateManager{frozen: true}
}

// SetObserver registers the observer notified after every transition.
func (m *StateManager) SetObserver(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = obs
}

// Begin resets the aggregate for a new run and unfreezes commits.
func (m *StateManager) Begin(topic string) {
	m.mu.Lock()
	m.state = ResearchRunState{Topic: topic, IsRunning: true}
	m.frozen = false
	obs, snap := m.observer, m.state.Clone()
	m.mu.Unlock()

	if obs != nil {
		obs(snap)
	}
}

// Commit applies the reducer to the current state as one atomic transition
// and notifies the observer. Commits against a frozen (terminated) run are
// dropped, preserving the invariant that nothing mutates after IsRunning
// turned false.
func (m *StateManager) Commit(reduce Reducer) {
	m.mu.Lock()
	if m.frozen {
		m.mu.Unlock()
		return
	}
	wasRunning := m.state.IsRunning
	m.state = reduce(m.state)
	if wasRunning && !m.state.IsRunning {
		m.frozen = true
	}
	obs, snap := m.observer, m.state.Clone()
	m.mu.Unlock()

	if obs != nil {
		obs(snap)
	}
}

// State returns a deep snapshot of the current run state.
func (m *StateManager) State() ResearchRunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}
