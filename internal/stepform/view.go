package stepform

import (
	"context"
	"slices"
)

// StepView pairs a step with its state in a View.
type StepView struct {
	Step
	State   StepState
	Current bool
}

// View is a read-only snapshot of a form instance handed to presentation
// code, together with the operations that request a transition. Mutating a
// View has no effect on the machine.
type View struct {
	CurrentID    string
	CurrentIndex int
	Direction    Direction
	Pending      bool
	First        bool
	Last         bool
	Progress     float64
	Steps        []StepView

	m *Machine
}

// View returns a snapshot of the machine.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Machine) viewLocked() View {
	steps := make([]StepView, len(m.states))
	for i, st := range m.states {
		steps[i] = StepView{Step: m.dir.At(i), State: st.clone(), Current: i == m.current}
	}
	return View{
		CurrentID:    m.states[m.current].ID,
		CurrentIndex: m.current,
		Direction:    m.direction,
		Pending:      m.pending,
		First:        m.current == 0,
		Last:         m.current == len(m.states)-1,
		Progress:     m.progressLocked(),
		Steps:        steps,
		m:            m,
	}
}

// Current returns the active step.
func (v View) Current() StepView {
	return v.Steps[v.CurrentIndex]
}

// Step returns the step with the given identity.
func (v View) Step(id string) (StepView, bool) {
	i := slices.IndexFunc(v.Steps, func(s StepView) bool { return s.ID == id })
	if i < 0 {
		return StepView{}, false
	}
	return v.Steps[i], true
}

// Errors returns the errors of every step that has any, keyed by step ID.
func (v View) Errors() map[string]FieldErrors {
	out := make(map[string]FieldErrors)
	for _, s := range v.Steps {
		if len(s.State.Errors) > 0 {
			out[s.ID] = s.State.Errors.Clone()
		}
	}
	return out
}

// Next requests GoNext on the machine the view was taken from.
func (v View) Next(ctx context.Context) (Transition, error) {
	return v.m.GoNext(ctx)
}

// Previous requests GoPrevious.
func (v View) Previous() (Transition, error) {
	return v.m.GoPrevious()
}

// Jump requests GoTo.
func (v View) Jump(id string) (Transition, error) {
	return v.m.GoTo(id)
}

// Submit requests a whole-form submission.
func (v View) Submit(ctx context.Context, onValid func(Values) error, onInvalid func(map[string]FieldErrors)) (SubmitResult, error) {
	return v.m.Submit(ctx, onValid, onInvalid)
}

// RenderFunc renders a view into presentation output.
type RenderFunc[T any] func(View) T

// Render hands a fresh snapshot to fn.
func Render[T any](m *Machine, fn RenderFunc[T]) T {
	return fn(m.View())
}
