package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mark3labs/stepform/internal/fields"
	"github.com/mark3labs/stepform/internal/nats"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	conn, err := nats.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return New(conn.JetStream, conn.Stream)
}

func mountSignup(t *testing.T, opts ...stepform.Option) (*stepform.Machine, *fields.Registry) {
	t.Helper()
	dir, err := stepform.NewDirectory([]stepform.Step{
		{ID: "personal", Fields: []string{"name"}},
		{ID: "address", Fields: []string{"street"}},
	})
	require.NoError(t, err)

	required := func(f string) stepform.StepValidator {
		return stepform.StepValidator{Validate: func(_ context.Context, v stepform.Values) (stepform.FieldErrors, error) {
			if s, _ := v[f].(string); s == "" {
				return stepform.FieldErrors{f: "required"}, nil
			}
			return nil, nil
		}}
	}
	res, err := stepform.NewResolver(dir, stepform.ResolverConfig{Steps: map[string]stepform.StepValidator{
		"personal": required("name"),
		"address":  required("street"),
	}})
	require.NoError(t, err)

	reg := fields.NewRegistry(fields.Field{ID: "name"}, fields.Field{ID: "street"})
	m, err := stepform.New(dir, res, reg, opts...)
	require.NoError(t, err)
	return m, reg
}

// recorded mounts the signup form with a recorder for instance attached.
func recorded(t *testing.T, s *Store, instance string) (*stepform.Machine, *fields.Registry, *Recorder) {
	t.Helper()
	var reg *fields.Registry
	rec := NewRecorder(s, "signup", instance, func() stepform.Values { return reg.AllValues() })
	m, reg := mountSignup(t, stepform.WithObserver(rec))
	return m, reg, rec
}

func TestRecorder_DraftAndSubmissions(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	m, reg, rec := recorded(t, s, "inst1")
	rec.Mount(m.View())

	reg.SetValue("name", "Ann")
	_, err := m.GoNext(ctx)
	require.NoError(t, err)

	_, err = m.Submit(ctx, nil, nil)
	require.NoError(t, err)

	reg.SetValue("street", "Main St 1")
	_, err = m.Submit(ctx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, rec.Err())

	st, err := s.LoadInstance(ctx, "signup", "inst1")
	require.NoError(t, err)
	assert.Equal(t, "address", st.CurrentStep)
	assert.Equal(t, []string{"personal"}, st.Visited)
	assert.Equal(t, "Main St 1", st.Values["street"])
	require.Len(t, st.Submissions, 1)
	assert.Equal(t, "Ann", st.LastSubmission().Values["name"])
	assert.Nil(t, st.Errors)
	assert.False(t, st.Closed)

	rec.Close()
	st, err = s.LoadInstance(ctx, "signup", "inst1")
	require.NoError(t, err)
	assert.True(t, st.Closed)
}

func TestRecorder_InvalidSubmissionKeepsErrors(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	m, reg, _ := recorded(t, s, "inst2")

	reg.SetValue("name", "Ann")
	_, err := m.Submit(ctx, nil, nil)
	require.NoError(t, err)

	st, err := s.LoadInstance(ctx, "signup", "inst2")
	require.NoError(t, err)
	assert.Equal(t, map[string]stepform.FieldErrors{"address": {"street": "required"}}, st.Errors)
	assert.Empty(t, st.Submissions)
	assert.Equal(t, "Ann", st.Values["name"])
}

func TestRecorder_RejectedSubmissionIsNotCounted(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	m, reg, rec := recorded(t, s, "inst3")
	reg.SetValue("name", "Ann")
	reg.SetValue("street", "Main St 1")

	_, err := m.Submit(ctx, func(stepform.Values) error { return errors.New("hook failed") }, nil)
	require.Error(t, err)
	require.NoError(t, rec.Err())

	st, err := s.LoadInstance(ctx, "signup", "inst3")
	require.NoError(t, err)
	assert.Empty(t, st.Submissions)
	assert.Nil(t, st.Errors)
	assert.Equal(t, "Main St 1", st.Values["street"])
}

func TestRecorder_ConcurrentRequestsKeepOrder(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	m, reg, rec := recorded(t, s, "inst4")
	rec.Mount(m.View())
	reg.SetValue("name", "Ann")
	reg.SetValue("street", "Main St 1")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				var err error
				switch (i + j) % 3 {
				case 0:
					_, err = m.GoNext(ctx)
				case 1:
					_, err = m.GoPrevious()
				default:
					_, err = m.GoTo("address")
				}
				if err != nil {
					assert.ErrorIs(t, err, stepform.ErrTransitionInProgress)
				}
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, rec.Err())

	st, err := s.LoadInstance(ctx, "signup", "inst4")
	require.NoError(t, err)
	assert.Equal(t, m.CurrentStepID(), st.CurrentStep)
}

func TestResumeRestoresPosition(t *testing.T) {
	st := &InstanceState{CurrentStep: "address", Visited: []string{"personal"}}
	m, _ := mountSignup(t, Resume(st)...)

	assert.Equal(t, "address", m.CurrentStepID())
	assert.Equal(t, 0.5, m.Progress())
}

func TestListInstancesAndSubmissions(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	for _, inst := range []string{"a", "b"} {
		m, reg, _ := recorded(t, s, inst)
		reg.SetValues(stepform.Values{"name": "N-" + inst, "street": "S-" + inst})
		_, err := m.Submit(ctx, nil, nil)
		require.NoError(t, err)
	}

	// Events of another form are not mixed in.
	_, err := s.PublishEvent(ctx, Event{Form: "other", Instance: "x", Type: nats.EventTypeInstance, Action: "mount"})
	require.NoError(t, err)

	instances, err := s.ListInstances(ctx, "signup")
	require.NoError(t, err)
	assert.Len(t, instances, 2)

	subs, err := s.Submissions(ctx, "signup")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "N-a", subs[0].Values["name"])
	assert.Less(t, subs[0].Seq, subs[1].Seq)

	got, err := s.Submission(ctx, "signup", subs[1].Seq)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Instance)

	_, err = s.Submission(ctx, "signup", 9999)
	assert.Error(t, err)

	_, err = s.LoadInstance(ctx, "signup", "missing")
	assert.Error(t, err)
}

func TestNewInstanceIDIsSubjectSafe(t *testing.T) {
	id := NewInstanceID()
	assert.NotEmpty(t, id)
	assert.NotContains(t, id, ".")
	assert.NotEqual(t, id, NewInstanceID())
}
