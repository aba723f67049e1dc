// Package fields is the in-memory field binding layer: it records each
// field's value, declared type and current error message.
package fields

import (
	"maps"
	"slices"
	"sync"

	"github.com/mark3labs/stepform/internal/stepform"
)

// Field declares one input slot.
type Field struct {
	ID          string
	Label       string
	Type        string // Type tag used to pick a default validator
	Placeholder string
	Options     []string // Choices for select fields
	Default     any
}

// Registry stores field declarations, values and errors. It is safe for
// concurrent use and satisfies stepform.FieldRegistry.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	fields map[string]Field
	values stepform.Values
	errors stepform.FieldErrors
}

var _ stepform.FieldRegistry = (*Registry)(nil)

// NewRegistry registers fields and seeds their default values.
func NewRegistry(fields ...Field) *Registry {
	r := &Registry{
		fields: make(map[string]Field, len(fields)),
		values: stepform.Values{},
		errors: stepform.FieldErrors{},
	}
	for _, f := range fields {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a field declaration. A non-nil Default becomes
// the field's value unless a value is already set.
func (r *Registry) Register(f Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fields[f.ID]; !exists {
		r.order = append(r.order, f.ID)
	}
	r.fields[f.ID] = f
	if _, set := r.values[f.ID]; !set && f.Default != nil {
		r.values[f.ID] = f.Default
	}
}

// Field returns the declaration of id.
func (r *Registry) Field(id string) (Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[id]
	return f, ok
}

// Fields returns all declarations in registration order.
func (r *Registry) Fields() []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Field, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.fields[id])
	}
	return out
}

// Types returns the field -> type tag table used by the resolver.
func (r *Registry) Types() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.fields))
	for id, f := range r.fields {
		if f.Type != "" {
			out[id] = f.Type
		}
	}
	return out
}

// SetValue stores a value. Setting a value clears the field's error, as a
// user edit does in the rendered form.
func (r *Registry) SetValue(id string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[id] = v
	delete(r.errors, id)
}

// SetValues stores several values at once.
func (r *Registry) SetValues(vals stepform.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, v := range vals {
		r.values[id] = v
		delete(r.errors, id)
	}
}

// GetValue returns the value of id, or nil.
func (r *Registry) GetValue(id string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[id]
}

// AllValues returns a copy of every value.
func (r *Registry) AllValues() stepform.Values {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values.Clone()
}

// SetError records a validation message for id.
func (r *Registry) SetError(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[id] = message
}

// ClearErrors removes the messages of the given fields.
func (r *Registry) ClearErrors(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.errors, id)
	}
}

// Error returns the current message for id.
func (r *Registry) Error(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errors[id]
}

// Errors returns a copy of every current message.
func (r *Registry) Errors() stepform.FieldErrors {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.errors)
}

// IDs returns every registered field ID in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
