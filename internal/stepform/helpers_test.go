package stepform

import (
	"context"
	"maps"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memRegistry is a minimal FieldRegistry for tests.
type memRegistry struct {
	mu     sync.Mutex
	values Values
	errors FieldErrors
}

func newMemRegistry(vals Values) *memRegistry {
	return &memRegistry{values: vals.Clone(), errors: FieldErrors{}}
}

func (r *memRegistry) GetValue(f string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[f]
}

func (r *memRegistry) AllValues() Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values.Clone()
}

func (r *memRegistry) SetError(f, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[f] = msg
}

func (r *memRegistry) ClearErrors(fs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range fs {
		delete(r.errors, f)
	}
}

func (r *memRegistry) set(f string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[f] = v
}

func (r *memRegistry) errs() FieldErrors {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.errors)
}

// required reports "required" for every listed field whose value is empty.
func required(fields ...string) StepValidator {
	return StepValidator{
		Covers: fields,
		Validate: func(_ context.Context, v Values) (FieldErrors, error) {
			errs := FieldErrors{}
			for _, f := range fields {
				if s, _ := v[f].(string); s == "" {
					errs[f] = "required"
				}
			}
			return errs, nil
		},
	}
}

// personalAddress mounts the two-step form used by the scenarios:
// personal(name) and address(street), both required.
func personalAddress(t *testing.T, vals Values, opts ...Option) (*Machine, *memRegistry) {
	t.Helper()
	dir, err := NewDirectory([]Step{
		{ID: "personal", Label: "Personal", Fields: []string{"name"}},
		{ID: "address", Label: "Address", Fields: []string{"street"}},
	})
	require.NoError(t, err)

	res, err := NewResolver(dir, ResolverConfig{
		Steps: map[string]StepValidator{
			"personal": required("name"),
			"address":  required("street"),
		},
	})
	require.NoError(t, err)

	reg := newMemRegistry(vals)
	m, err := New(dir, res, reg, opts...)
	require.NoError(t, err)
	return m, reg
}

// recorder is an Observer that keeps what it saw.
type recorder struct {
	mu          sync.Mutex
	transitions []Transition
	submits     []SubmitResult
}

func (r *recorder) OnTransition(tr Transition, _ View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
}

func (r *recorder) OnSubmit(res SubmitResult, _ View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits = append(r.submits, res)
}

// stallingObserver records like recorder but blocks inside its first
// OnTransition until release is closed.
type stallingObserver struct {
	recorder
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newStallingObserver() *stallingObserver {
	return &stallingObserver{entered: make(chan struct{}), release: make(chan struct{})}
}

func (o *stallingObserver) OnTransition(tr Transition, v View) {
	o.recorder.OnTransition(tr, v)
	o.once.Do(func() {
		close(o.entered)
		<-o.release
	})
}

func (o *stallingObserver) seen() []Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Transition(nil), o.transitions...)
}
