// Package store persists form instances as an append-only event log in
// JetStream and reduces the log back into drafts and submissions.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mark3labs/stepform/internal/logger"
	"github.com/mark3labs/stepform/internal/nats"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/nats-io/nats.go/jetstream"
)

var log = logger.Default.Named("store")

// Event is one entry of the form event log.
type Event struct {
	ID        string          `json:"id"`        // Stream sequence, filled on load
	Timestamp time.Time       `json:"timestamp"` // When the event occurred
	Form      string          `json:"form"`      // Form name
	Instance  string          `json:"instance"`  // Form instance ID
	Type      string          `json:"type"`      // instance, transition, submission
	Action    string          `json:"action"`    // mount, close, moved, valid, invalid, ...
	Meta      json.RawMessage `json:"meta"`      // Action-specific metadata
	Data      string          `json:"data"`      // JSON encoded values snapshot
}

// Store reads and writes form events.
type Store struct {
	js     jetstream.JetStream
	stream jetstream.Stream
}

// New creates a Store over an existing stream.
func New(js jetstream.JetStream, stream jetstream.Stream) *Store {
	return &Store{js: js, stream: stream}
}

// PublishEvent appends an event to the log on
// stepform.{form}.{instance}.{type}.
func (s *Store) PublishEvent(ctx context.Context, event Event) (*jetstream.PubAck, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := nats.SubjectForEvent(event.Form, event.Instance, event.Type)
	ack, err := s.js.Publish(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	log.Debug("Published %s/%s for %s/%s seq=%d", event.Type, event.Action, event.Form, event.Instance, ack.Sequence)
	return ack, nil
}

// Submission is one accepted submission of a form instance.
type Submission struct {
	Seq         uint64          `json:"seq"`
	Instance    string          `json:"instance"`
	Values      stepform.Values `json:"values"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// InstanceState is a form instance reconstructed from its events.
type InstanceState struct {
	Form        string                          `json:"form"`
	Instance    string                          `json:"instance"`
	CurrentStep string                          `json:"current_step"`
	Visited     []string                        `json:"visited"`
	Values      stepform.Values                 `json:"values"`
	Errors      map[string]stepform.FieldErrors `json:"errors,omitempty"`
	Submissions []*Submission                   `json:"submissions"`
	Closed      bool                            `json:"closed"`
	UpdatedAt   time.Time                       `json:"updated_at"`
}

// transitionMeta is the metadata of a transition event.
type transitionMeta struct {
	From      int      `json:"from"`
	To        int      `json:"to"`
	Step      string   `json:"step"`
	Direction string   `json:"direction"`
	Visited   []string `json:"visited"`
}

// submissionMeta is the metadata of a failed or rejected submission.
type submissionMeta struct {
	Errors map[string]stepform.FieldErrors `json:"errors,omitempty"`
	Reason string                          `json:"reason,omitempty"`
}

// Apply folds one event into the state.
func (st *InstanceState) Apply(event Event) {
	st.UpdatedAt = event.Timestamp

	switch event.Type {
	case nats.EventTypeInstance:
		switch event.Action {
		case "mount":
			var meta transitionMeta
			_ = json.Unmarshal(event.Meta, &meta)
			if st.CurrentStep == "" {
				st.CurrentStep = meta.Step
			}
			st.applyValues(event.Data)
		case "close":
			st.Closed = true
		}

	case nats.EventTypeTransition:
		var meta transitionMeta
		_ = json.Unmarshal(event.Meta, &meta)
		st.CurrentStep = meta.Step
		st.Visited = meta.Visited
		st.applyValues(event.Data)

	case nats.EventTypeSubmission:
		switch event.Action {
		case "valid":
			var vals stepform.Values
			_ = json.Unmarshal([]byte(event.Data), &vals)
			seq, _ := strconv.ParseUint(event.ID, 10, 64)
			st.Values = vals
			st.Errors = nil
			st.Submissions = append(st.Submissions, &Submission{
				Seq:         seq,
				Instance:    event.Instance,
				Values:      vals,
				SubmittedAt: event.Timestamp,
			})
		case "invalid":
			var meta submissionMeta
			_ = json.Unmarshal(event.Meta, &meta)
			st.Errors = meta.Errors
			st.applyValues(event.Data)
		case "rejected":
			st.Errors = nil
			st.applyValues(event.Data)
		}
	}
}

func (st *InstanceState) applyValues(data string) {
	if data == "" {
		return
	}
	var vals stepform.Values
	if err := json.Unmarshal([]byte(data), &vals); err == nil {
		st.Values = vals
	}
}

// LastSubmission returns the most recent submission, or nil.
func (st *InstanceState) LastSubmission() *Submission {
	if len(st.Submissions) == 0 {
		return nil
	}
	return st.Submissions[len(st.Submissions)-1]
}

// events reads every event matching subject in stream order.
func (s *Store) events(ctx context.Context, subject string) ([]Event, error) {
	consumer, err := s.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: subject,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	defer func() {
		_ = s.stream.DeleteConsumer(context.WithoutCancel(ctx), consumer.CachedInfo().Name)
	}()

	const batchSize = 500
	var out []Event
	malformed := 0
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			meta, _ := msg.Metadata()

			var event Event
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				malformed++
				_ = msg.Ack()
				continue
			}
			if meta != nil {
				event.ID = strconv.FormatUint(meta.Sequence.Stream, 10)
			}
			out = append(out, event)
			_ = msg.Ack()
		}

		if count < batchSize {
			break
		}
	}

	if malformed > 0 {
		log.Warn("Skipped %d malformed events on %s", malformed, subject)
	}
	return out, nil
}

// LoadInstance reduces every event of one form instance.
func (s *Store) LoadInstance(ctx context.Context, form, instance string) (*InstanceState, error) {
	events, err := s.events(ctx, nats.SubjectForInstance(form, instance))
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events for %s/%s", form, instance)
	}

	st := &InstanceState{Form: form, Instance: instance, Values: stepform.Values{}}
	for _, e := range events {
		st.Apply(e)
	}
	return st, nil
}

// ListInstances reduces every instance of a form, most recently updated
// first.
func (s *Store) ListInstances(ctx context.Context, form string) ([]*InstanceState, error) {
	events, err := s.events(ctx, nats.SubjectForForm(form))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*InstanceState)
	for _, e := range events {
		st, ok := byID[e.Instance]
		if !ok {
			st = &InstanceState{Form: form, Instance: e.Instance, Values: stepform.Values{}}
			byID[e.Instance] = st
		}
		st.Apply(e)
	}

	out := make([]*InstanceState, 0, len(byID))
	for _, st := range byID {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Submissions returns every accepted submission of a form in stream order.
func (s *Store) Submissions(ctx context.Context, form string) ([]*Submission, error) {
	instances, err := s.ListInstances(ctx, form)
	if err != nil {
		return nil, err
	}
	var out []*Submission
	for _, st := range instances {
		out = append(out, st.Submissions...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Submission returns the submission stored at stream sequence seq.
func (s *Store) Submission(ctx context.Context, form string, seq uint64) (*Submission, error) {
	subs, err := s.Submissions(ctx, form)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if sub.Seq == seq {
			return sub, nil
		}
	}
	return nil, fmt.Errorf("no submission %d for form %s", seq, form)
}
