package stepform

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/stepform/internal/logger"
)

// FieldRegistry is the field binding layer the machine reads from. The
// machine never writes values; it only reports errors back.
type FieldRegistry interface {
	GetValue(field string) any
	AllValues() Values
	SetError(field, message string)
	ClearErrors(fields []string)
}

// Validity is the tri-state verdict of a step's last validation.
type Validity int

const (
	ValidityUnknown Validity = iota // Never validated
	ValidityValid
	ValidityInvalid
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// StepState is the per-step bookkeeping owned by the machine.
type StepState struct {
	ID      string
	Visited bool
	Valid   Validity
	Errors  FieldErrors
}

func (s StepState) clone() StepState {
	s.Errors = s.Errors.Clone()
	return s
}

// Direction of the last transition. Only used for UI feedback.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionBackward
	DirectionJump
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	case DirectionJump:
		return "jump"
	default:
		return "none"
	}
}

// Outcome is the expected, recoverable result of a navigation request.
type Outcome int

const (
	OutcomeMoved Outcome = iota
	OutcomeValidationFailed
	OutcomeAtBoundary
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMoved:
		return "moved"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeAtBoundary:
		return "at_boundary"
	default:
		return "unknown"
	}
}

// Transition describes one completed navigation request. From and To are
// ordinals; they are equal when the request did not move.
type Transition struct {
	From      int
	To        int
	StepID    string // Step at To
	Direction Direction
	Outcome   Outcome
	Errors    FieldErrors // Set when Outcome is OutcomeValidationFailed
}

// SubmitResult is the outcome of a whole-form submission.
type SubmitResult struct {
	Valid    bool
	Values   Values
	Errors   map[string]FieldErrors // Step ID -> field errors, only failing steps
	Rejected error                  // Set when onValid refused a valid form
}

// Observer is told about every completed transition and submission. It is
// called after the state change, outside the machine's lock, while the
// request is still pending. Observers see requests in the order they were
// applied and must not navigate the machine.
type Observer interface {
	OnTransition(tr Transition, view View)
	OnSubmit(res SubmitResult, view View)
}

// Option configures a Machine.
type Option func(*Machine) error

// WithObserver adds an observer. May be given several times.
func WithObserver(o Observer) Option {
	return func(m *Machine) error {
		m.observers = append(m.observers, o)
		return nil
	}
}

// WithInitialStep mounts the machine on the given step instead of the first
// one, e.g. when resuming a draft.
func WithInitialStep(id string) Option {
	return func(m *Machine) error {
		i, err := m.dir.OrdinalOf(id)
		if err != nil {
			return err
		}
		m.current = i
		return nil
	}
}

// WithVisited marks steps as already visited, e.g. when resuming a draft.
func WithVisited(ids ...string) Option {
	return func(m *Machine) error {
		for _, id := range ids {
			i, err := m.dir.OrdinalOf(id)
			if err != nil {
				return err
			}
			m.states[i].Visited = true
		}
		return nil
	}
}

// Machine is the step navigation state machine for one form instance.
//
// Every request either fully succeeds or leaves the current step untouched.
// A request stays pending until its validation and its observers have
// finished; other requests are rejected with ErrTransitionInProgress in the
// meantime.
type Machine struct {
	dir       *Directory
	resolver  *Resolver
	registry  FieldRegistry
	observers []Observer

	mu        sync.Mutex
	current   int
	direction Direction
	states    []StepState
	pending   bool
	closed    bool
}

// New mounts a form instance: current step 0, every step unvisited with
// unknown validity.
func New(dir *Directory, resolver *Resolver, registry FieldRegistry, opts ...Option) (*Machine, error) {
	m := &Machine{
		dir:      dir,
		resolver: resolver,
		registry: registry,
		states:   make([]StepState, dir.Count()),
	}
	for i := range m.states {
		m.states[i] = StepState{ID: dir.At(i).ID, Errors: FieldErrors{}}
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// begin enters the pending sub-state and returns the current ordinal.
func (m *Machine) begin() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.pending {
		return 0, ErrTransitionInProgress
	}
	m.pending = true
	return m.current, nil
}

// end leaves the pending sub-state.
func (m *Machine) end() {
	m.mu.Lock()
	m.pending = false
	m.mu.Unlock()
}

// guard checks that a synchronous request may run. Caller holds m.mu.
func (m *Machine) guard() error {
	if m.closed {
		return ErrClosed
	}
	if m.pending {
		return ErrTransitionInProgress
	}
	return nil
}

// syncErrors mirrors a step's errors into the registry. Caller holds m.mu.
func (m *Machine) syncErrors(fields []string, errs FieldErrors) {
	m.registry.ClearErrors(fields)
	for _, f := range errs.Fields() {
		m.registry.SetError(f, errs[f])
	}
}

// GoNext validates the current step and advances on success. On the last
// step a successful validation reports OutcomeAtBoundary; use Submit to
// complete the form. Validation always re-runs against current values.
func (m *Machine) GoNext(ctx context.Context) (Transition, error) {
	idx, err := m.begin()
	if err != nil {
		return Transition{}, err
	}
	defer m.end()

	step := m.dir.At(idx)
	res, verr := m.resolver.Resolve(ctx, step.ID, step.Fields, m.registry.AllValues())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logger.Debug("Discarding validation result for %q: form closed", step.ID)
		return Transition{}, ErrClosed
	}
	if verr != nil {
		m.mu.Unlock()
		return Transition{}, fmt.Errorf("validating step %q: %w", step.ID, verr)
	}

	tr := Transition{From: idx, To: idx, StepID: step.ID, Direction: DirectionForward}
	st := &m.states[idx]
	switch {
	case !res.Valid:
		st.Valid = ValidityInvalid
		st.Errors = res.Errors.Clone()
		tr.Outcome = OutcomeValidationFailed
		tr.Errors = res.Errors.Clone()
	case idx == m.dir.Count()-1:
		st.Visited = true
		st.Valid = ValidityValid
		st.Errors = FieldErrors{}
		tr.Outcome = OutcomeAtBoundary
	default:
		st.Visited = true
		st.Valid = ValidityValid
		st.Errors = FieldErrors{}
		m.current = idx + 1
		m.direction = DirectionForward
		tr.To = m.current
		tr.StepID = m.dir.At(m.current).ID
		tr.Outcome = OutcomeMoved
	}
	m.syncErrors(step.Fields, res.Errors)
	view := m.viewLocked()
	m.mu.Unlock()

	logger.Debug("GoNext %d -> %d (%s)", tr.From, tr.To, tr.Outcome)
	m.notifyTransition(tr, view)
	return tr, nil
}

// GoPrevious moves back one step without validating. On the first step it
// reports OutcomeAtBoundary and does nothing.
func (m *Machine) GoPrevious() (Transition, error) {
	m.mu.Lock()
	if err := m.guard(); err != nil {
		m.mu.Unlock()
		return Transition{}, err
	}
	m.pending = true
	defer m.end()

	idx := m.current
	tr := Transition{From: idx, To: idx, StepID: m.states[idx].ID, Direction: DirectionBackward}
	if idx == 0 {
		tr.Outcome = OutcomeAtBoundary
	} else {
		m.current = idx - 1
		m.direction = DirectionBackward
		tr.To = m.current
		tr.StepID = m.states[m.current].ID
		tr.Outcome = OutcomeMoved
	}
	view := m.viewLocked()
	m.mu.Unlock()

	logger.Debug("GoPrevious %d -> %d (%s)", tr.From, tr.To, tr.Outcome)
	m.notifyTransition(tr, view)
	return tr, nil
}

// GoTo jumps to the step with the given identity without validating the
// current one. Forward gating is enforced only by GoNext.
func (m *Machine) GoTo(id string) (Transition, error) {
	target, err := m.dir.OrdinalOf(id)
	if err != nil {
		return Transition{}, err
	}

	m.mu.Lock()
	if err := m.guard(); err != nil {
		m.mu.Unlock()
		return Transition{}, err
	}
	m.pending = true
	defer m.end()

	tr := Transition{From: m.current, To: target, StepID: id, Direction: DirectionJump, Outcome: OutcomeMoved}
	m.current = target
	m.direction = DirectionJump
	view := m.viewLocked()
	m.mu.Unlock()

	logger.Debug("GoTo %q %d -> %d", id, tr.From, tr.To)
	m.notifyTransition(tr, view)
	return tr, nil
}

// Submit validates every step. When the whole form is valid it calls
// onValid with the values; otherwise it calls onInvalid with the errors of
// each failing step. The current step never changes. Either callback may be
// nil. An error from onValid is returned wrapped. The machine stays pending
// while the callbacks run, so navigating from inside them is rejected.
func (m *Machine) Submit(ctx context.Context, onValid func(Values) error, onInvalid func(map[string]FieldErrors)) (SubmitResult, error) {
	if _, err := m.begin(); err != nil {
		return SubmitResult{}, err
	}
	defer m.end()

	values := m.registry.AllValues()
	byStep, verr := m.resolver.ResolveAll(ctx, values)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logger.Debug("Discarding submit result: form closed")
		return SubmitResult{}, ErrClosed
	}
	if verr != nil {
		m.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("validating form: %w", verr)
	}

	res := SubmitResult{Valid: len(byStep) == 0, Values: values, Errors: byStep}
	for i := range m.states {
		step := m.dir.At(i)
		st := &m.states[i]
		if errs, failed := byStep[step.ID]; failed {
			st.Valid = ValidityInvalid
			st.Errors = errs.Clone()
		} else {
			st.Valid = ValidityValid
			st.Errors = FieldErrors{}
		}
		if res.Valid {
			st.Visited = true
		}
		m.syncErrors(step.Fields, byStep[step.ID])
	}
	view := m.viewLocked()
	m.mu.Unlock()

	logger.Debug("Submit valid=%v failing_steps=%d", res.Valid, len(byStep))

	var cbErr error
	if res.Valid {
		if onValid != nil {
			if err := onValid(values.Clone()); err != nil {
				cbErr = fmt.Errorf("submit action: %w", err)
				res.Rejected = err
			}
		}
	} else if onInvalid != nil {
		onInvalid(cloneByStep(byStep))
	}

	for _, o := range m.observers {
		o.OnSubmit(res, view)
	}
	return res, cbErr
}

func cloneByStep(in map[string]FieldErrors) map[string]FieldErrors {
	out := make(map[string]FieldErrors, len(in))
	for id, errs := range in {
		out[id] = errs.Clone()
	}
	return out
}

func (m *Machine) notifyTransition(tr Transition, view View) {
	for _, o := range m.observers {
		o.OnTransition(tr, view)
	}
}

// Close unmounts the form instance. A validation still in flight finishes
// but its result is discarded.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// CurrentIndex returns the ordinal of the active step.
func (m *Machine) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentStepID returns the identity of the active step.
func (m *Machine) CurrentStepID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[m.current].ID
}

// IsFirstStep reports whether the active step is the first one.
func (m *Machine) IsFirstStep() bool {
	return m.CurrentIndex() == 0
}

// IsLastStep reports whether the active step is the terminal one.
func (m *Machine) IsLastStep() bool {
	return m.CurrentIndex() == m.dir.Count()-1
}

// Progress returns the fraction of visited steps.
func (m *Machine) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progressLocked()
}

func (m *Machine) progressLocked() float64 {
	visited := 0
	for _, st := range m.states {
		if st.Visited {
			visited++
		}
	}
	return float64(visited) / float64(len(m.states))
}

// Pending reports whether a validation is in flight.
func (m *Machine) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// StepStates returns a snapshot of every step's state in order.
func (m *Machine) StepStates() []StepState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StepState, len(m.states))
	for i, st := range m.states {
		out[i] = st.clone()
	}
	return out
}

// Directory returns the steps the machine navigates.
func (m *Machine) Directory() *Directory {
	return m.dir
}
