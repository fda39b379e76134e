package shared

// Transitions is a closed transition table keyed by source state.
type Transitions[S comparable] map[S][]S

// CanTransition reports whether the table allows moving from one state to another.
func (t Transitions[S]) CanTransition(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Targets lists the states reachable from the given state.
func (t Transitions[S]) Targets(from S) []S {
	out := make([]S, len(t[from]))
	copy(out, t[from])
	return out
}
