package grammar

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrUnknownVersion is returned for operations on a version the registry has
// never seen.
var ErrUnknownVersion = errors.New("grammar: unknown version")

// ErrNoActiveGrammar is returned when no version has been activated yet.
var ErrNoActiveGrammar = errors.New("grammar: no active version")

// TransitionError reports a lifecycle move the state machine forbids.
type TransitionError struct {
	Version int
	From    State
	To      State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("grammar: version %d cannot move %s -> %s", e.Version, e.From, e.To)
}

// VersionInfo is the bookkeeping view of one grammar version.
type VersionInfo struct {
	Version     int
	Name        string
	State       State
	Fingerprint string
	Created     time.Time
	Validated   time.Time // Zero until validated
	Activated   time.Time // Zero until activated
	Superseded  time.Time // Zero until a later version replaced it
	Archived    time.Time // Zero until archived
}

type versionRecord struct {
	info   VersionInfo
	def    *Definition
	handle *Handle // Set at validation
}

// Registry owns the grammar lifecycle for one engine instance. Versions are
// assigned monotonically on submission; exactly one version is Active at a
// time. Activation is a copy-on-write swap of an atomic handle pointer, so
// readers of Active never take the registry lock and calls in flight on an
// older handle finish against that handle untouched. Every version ever
// submitted stays queryable; archived versions are never deleted.
type Registry struct {
	mu      sync.RWMutex
	records map[int]*versionRecord
	order   []int
	next    int

	active atomic.Pointer[Handle]

	now func() time.Time // Stubbed in tests
}

// NewRegistry creates an empty registry. No version is active until one is
// submitted, validated, and activated.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[int]*versionRecord),
		next:    1,
		now:     time.Now,
	}
}

// Submit stores a definition as a new Draft version and returns the assigned
// version number. The definition is cloned; later caller mutations do not
// reach the registry.
func (r *Registry) Submit(def *Definition) (int, error) {
	if def == nil {
		return 0, fmt.Errorf("grammar: nil definition")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	version := r.next
	r.next++

	stored := def.Clone()
	stored.Version = version
	r.records[version] = &versionRecord{
		info: VersionInfo{
			Version:     version,
			Name:        stored.Name,
			State:       StateDraft,
			Fingerprint: stored.Fingerprint(),
			Created:     r.now(),
		},
		def: stored,
	}
	r.order = append(r.order, version)
	return version, nil
}

// Validate runs full validation on a Draft version. On success the version
// moves to Validated and its immutable handle is returned; on failure the
// version stays Draft and the *ErrorList is returned. Calling Validate on an
// already Validated version returns the existing handle.
func (r *Registry) Validate(version int) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	if rec.handle != nil {
		return rec.handle, nil
	}
	if !rec.info.State.CanTransition(StateValidated) {
		return nil, &TransitionError{Version: version, From: rec.info.State, To: StateValidated}
	}

	handle, err := Validate(rec.def)
	if err != nil {
		return nil, err
	}
	rec.handle = handle.withVersion(version)
	rec.info.State = StateValidated
	rec.info.Validated = r.now()
	return rec.handle, nil
}

// Activate makes a Validated version the single Active version. The swap is
// atomic: the new handle is published in one store, the previously Active
// version becomes Superseded, and no reader ever observes an intermediate
// state. In-flight work pinned to the old handle is unaffected.
func (r *Registry) Activate(version int) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	if !rec.info.State.CanTransition(StateActive) {
		return nil, &TransitionError{Version: version, From: rec.info.State, To: StateActive}
	}

	if prev := r.active.Load(); prev != nil {
		prevRec := r.records[prev.Version()]
		prevRec.info.State = StateSuperseded
		prevRec.info.Superseded = r.now()
	}
	rec.info.State = StateActive
	rec.info.Activated = r.now()
	r.active.Store(rec.handle)
	return rec.handle, nil
}

// ActivateDefinition is the all-or-nothing edit path: submit, validate, and
// activate in one call. On validation failure the definition is kept as a
// rejected Draft, the error lists every problem, and the previously Active
// version keeps serving.
func (r *Registry) ActivateDefinition(def *Definition) (*Handle, error) {
	version, err := r.Submit(def)
	if err != nil {
		return nil, err
	}
	if _, err := r.Validate(version); err != nil {
		return nil, err
	}
	return r.Activate(version)
}

// Active returns the currently active handle without locking. The boolean is
// false before the first activation.
func (r *Registry) Active() (*Handle, bool) {
	h := r.active.Load()
	return h, h != nil
}

// Archive moves a Superseded version to the terminal Archived state.
func (r *Registry) Archive(version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[version]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	if !rec.info.State.CanTransition(StateArchived) {
		return &TransitionError{Version: version, From: rec.info.State, To: StateArchived}
	}
	rec.info.State = StateArchived
	rec.info.Archived = r.now()
	return nil
}

// DiscardDraft removes a Draft version that never reached Validated. It is
// the only deletion the registry performs, used by retention maintenance to
// drop abandoned edit attempts. Any other state is refused.
func (r *Registry) DiscardDraft(version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[version]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	if rec.info.State != StateDraft {
		return &TransitionError{Version: version, From: rec.info.State, To: "discarded"}
	}
	delete(r.records, version)
	for i, v := range r.order {
		if v == version {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Info returns the bookkeeping view of one version.
func (r *Registry) Info(version int) (VersionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[version]
	if !ok {
		return VersionInfo{}, false
	}
	return rec.info, true
}

// Definition returns a copy of the stored definition for a version.
func (r *Registry) Definition(version int) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[version]
	if !ok {
		return nil, false
	}
	return rec.def.Clone(), true
}

// Handle returns the validated handle for a version, if it has one.
func (r *Registry) Handle(version int) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[version]
	if !ok || rec.handle == nil {
		return nil, false
	}
	return rec.handle, true
}

// Versions lists every known version in submission order.
func (r *Registry) Versions() []VersionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VersionInfo, 0, len(r.order))
	for _, v := range r.order {
		out = append(out, r.records[v].info)
	}
	return out
}

// Stats summarises the registry for logging and metrics.
type Stats struct {
	Total         int
	ActiveVersion int // 0 when nothing is active
	ByState       map[State]int
}

// Stats returns current registry counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{
		Total:   len(r.order),
		ByState: make(map[State]int),
	}
	for _, v := range r.order {
		s.ByState[r.records[v].info.State]++
	}
	if h := r.active.Load(); h != nil {
		s.ActiveVersion = h.Version()
	}
	return s
}
