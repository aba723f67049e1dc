package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const streamName = "stepform_events"

// Event types recorded for a form instance.
const (
	EventTypeInstance   = "instance"   // mount / close
	EventTypeTransition = "transition" // navigation outcome plus draft values
	EventTypeSubmission = "submission" // submit attempts
)

// SubjectForForm returns the wildcard subject for every instance of a form.
// Example: "stepform.signup.>"
func SubjectForForm(form string) string {
	return fmt.Sprintf("stepform.%s.>", form)
}

// SubjectForInstance returns the wildcard subject for one form instance.
// Example: "stepform.signup.abc123.>"
func SubjectForInstance(form, instance string) string {
	return fmt.Sprintf("stepform.%s.%s.>", form, instance)
}

// SubjectForEvent returns the subject an event is published on.
// Example: "stepform.signup.abc123.transition"
func SubjectForEvent(form, instance, eventType string) string {
	return fmt.Sprintf("stepform.%s.%s.%s", form, instance, eventType)
}

// SetupStream creates or updates the stream holding every form event with
// 90-day retention.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"stepform.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   90 * 24 * time.Hour,
	})
}
