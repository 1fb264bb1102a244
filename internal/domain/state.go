package domain

// NodeState represents canonical transient task states.
type NodeState string

// Canonical node states. StateDefault is implicit: a task with no map
// entry is in its default state.
const (
	StateDefault   NodeState = "default"
	StateCompleted NodeState = "completed"
	StateCancelled NodeState = "cancelled"
)

// StateMap is the side association from task ID to transient state.
// Only non-default states are stored.
type StateMap map[string]NodeState

// Get returns the state for id, defaulting to StateDefault.
func (s StateMap) Get(id string) NodeState {
	if st, ok := s[id]; ok {
		return st
	}
	return StateDefault
}

// Set records a state for id. Setting StateDefault removes the entry.
func (s StateMap) Set(id string, state NodeState) {
	if state == StateDefault {
		delete(s, id)
		return
	}
	s[id] = state
}

// Clear removes any entry for id.
func (s StateMap) Clear(id string) {
	delete(s, id)
}

// Len returns the number of non-default entries.
func (s StateMap) Len() int {
	return len(s)
}
