package stepform

import (
	"errors"
	"fmt"
	"slices"
)

// Step describes one screen of a multi-step form and the fields it owns.
// Ordinal is assigned by the Directory from registration order.
type Step struct {
	ID          string
	Label       string
	Description string // Markdown shown above the step's fields
	Fields      []string
	Ordinal     int
}

// Directory is the immutable, ordered list of steps for one form instance.
type Directory struct {
	steps   []Step
	byID    map[string]int
	ownerOf map[string]string // field -> step ID
}

// NewDirectory registers steps in navigation order. Registration happens
// once; the returned Directory is never mutated.
func NewDirectory(steps []Step) (*Directory, error) {
	if len(steps) == 0 {
		return nil, errors.New("form needs at least one step")
	}

	d := &Directory{
		steps:   make([]Step, 0, len(steps)),
		byID:    make(map[string]int, len(steps)),
		ownerOf: make(map[string]string),
	}

	for i, s := range steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step %d (%q) has no id", i, s.Label)
		}
		if _, exists := d.byID[s.ID]; exists {
			return nil, &DuplicateStepError{ID: s.ID}
		}
		for _, f := range s.Fields {
			if owner, taken := d.ownerOf[f]; taken {
				return nil, &DuplicateFieldError{Field: f, First: owner, Again: s.ID}
			}
			d.ownerOf[f] = s.ID
		}

		s.Ordinal = i
		s.Fields = slices.Clone(s.Fields)
		d.byID[s.ID] = i
		d.steps = append(d.steps, s)
	}

	return d, nil
}

// Get returns the step with the given identity.
func (d *Directory) Get(id string) (Step, error) {
	i, ok := d.byID[id]
	if !ok {
		return Step{}, &UnknownStepError{ID: id}
	}
	return d.At(i), nil
}

// OrdinalOf returns the navigation position of a step.
func (d *Directory) OrdinalOf(id string) (int, error) {
	i, ok := d.byID[id]
	if !ok {
		return -1, &UnknownStepError{ID: id}
	}
	return i, nil
}

// At returns the step at ordinal i. It panics if i is out of range.
func (d *Directory) At(i int) Step {
	s := d.steps[i]
	s.Fields = slices.Clone(s.Fields)
	return s
}

// Count returns the number of steps.
func (d *Directory) Count() int {
	return len(d.steps)
}

// Steps returns a copy of all steps in order.
func (d *Directory) Steps() []Step {
	out := make([]Step, len(d.steps))
	for i := range d.steps {
		out[i] = d.At(i)
	}
	return out
}

// AllFields returns the union of every step's fields in step order.
func (d *Directory) AllFields() []string {
	var out []string
	for _, s := range d.steps {
		out = append(out, s.Fields...)
	}
	return out
}

// OwnerOf returns the step that owns field, if any.
func (d *Directory) OwnerOf(field string) (string, bool) {
	id, ok := d.ownerOf[field]
	return id, ok
}
