package grammar

// State is a grammar version's lifecycle position. A version moves strictly
// forward: Draft -> Validated -> Active -> Superseded -> Archived. Archived
// is terminal and archived versions are retained, never deleted.
type State string

// Lifecycle states.
const (
	StateDraft      State = "draft"
	StateValidated  State = "validated"
	StateActive     State = "active"
	StateSuperseded State = "superseded"
	StateArchived   State = "archived"
)

// CanTransition reports whether the lifecycle permits moving from s to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateDraft:
		return next == StateValidated
	case StateValidated:
		return next == StateActive
	case StateActive:
		return next == StateSuperseded
	case StateSuperseded:
		return next == StateArchived
	}
	return false
}

// Terminal returns true for the final lifecycle state.
func (s State) Terminal() bool { return s == StateArchived }
