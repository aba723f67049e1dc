package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/stepform/internal/nats"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/nats-io/nuid"
)

// NewInstanceID returns a subject-safe identifier for a form instance.
func NewInstanceID() string {
	return nuid.Next()
}

// Recorder is a stepform.Observer that appends every transition and
// submission of one form instance to the store. Publishing failures are
// logged and kept in Err; they never block the form.
type Recorder struct {
	store    *Store
	form     string
	instance string
	values   func() stepform.Values
	timeout  time.Duration

	mu  sync.Mutex
	err error
}

var _ stepform.Observer = (*Recorder)(nil)

// NewRecorder records events for form/instance. values is read on every
// transition to store the draft.
func NewRecorder(s *Store, form, instance string, values func() stepform.Values) *Recorder {
	return &Recorder{
		store:    s,
		form:     form,
		instance: instance,
		values:   values,
		timeout:  2 * time.Second,
	}
}

// Instance returns the instance ID being recorded.
func (r *Recorder) Instance() string {
	return r.instance
}

// Err returns the last publishing error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Mount records that the form instance was mounted on view's step.
func (r *Recorder) Mount(view stepform.View) {
	meta := transitionMeta{To: view.CurrentIndex, Step: view.CurrentID, Visited: visited(view)}
	r.publish(nats.EventTypeInstance, "mount", meta, r.values())
}

// Close records that the form instance was unmounted.
func (r *Recorder) Close() {
	r.publish(nats.EventTypeInstance, "close", nil, nil)
}

// OnTransition stores the transition together with the current draft.
func (r *Recorder) OnTransition(tr stepform.Transition, view stepform.View) {
	meta := transitionMeta{
		From:      tr.From,
		To:        tr.To,
		Step:      view.CurrentID,
		Direction: tr.Direction.String(),
		Visited:   visited(view),
	}
	r.publish(nats.EventTypeTransition, tr.Outcome.String(), meta, r.values())
}

// OnSubmit stores a valid, invalid or rejected submission.
func (r *Recorder) OnSubmit(res stepform.SubmitResult, _ stepform.View) {
	if res.Rejected != nil {
		r.publish(nats.EventTypeSubmission, "rejected", submissionMeta{Reason: res.Rejected.Error()}, res.Values)
		return
	}
	if res.Valid {
		r.publish(nats.EventTypeSubmission, "valid", nil, res.Values)
		return
	}
	r.publish(nats.EventTypeSubmission, "invalid", submissionMeta{Errors: res.Errors}, res.Values)
}

func (r *Recorder) publish(eventType, action string, meta any, values stepform.Values) {
	event := Event{
		Form:     r.form,
		Instance: r.instance,
		Type:     eventType,
		Action:   action,
	}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			r.fail(fmt.Errorf("marshaling %s meta: %w", eventType, err))
			return
		}
		event.Meta = raw
	}
	if values != nil {
		raw, err := json.Marshal(values)
		if err != nil {
			r.fail(fmt.Errorf("marshaling values: %w", err))
			return
		}
		event.Data = string(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.store.PublishEvent(ctx, event); err != nil {
		r.fail(err)
	}
}

func (r *Recorder) fail(err error) {
	log.Error("Recording %s/%s: %v", r.form, r.instance, err)
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func visited(view stepform.View) []string {
	var out []string
	for _, s := range view.Steps {
		if s.State.Visited {
			out = append(out, s.ID)
		}
	}
	return out
}

// Resume returns machine options restoring a stored draft's position.
func Resume(st *InstanceState) []stepform.Option {
	var opts []stepform.Option
	if st.CurrentStep != "" {
		opts = append(opts, stepform.WithInitialStep(st.CurrentStep))
	}
	if len(st.Visited) > 0 {
		opts = append(opts, stepform.WithVisited(st.Visited...))
	}
	return opts
}
