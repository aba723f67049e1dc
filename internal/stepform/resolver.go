package stepform

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Values maps field identities to their current values.
type Values map[string]any

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return maps.Clone(v)
}

// FieldErrors maps field identities to a human readable error message.
type FieldErrors map[string]string

// Clone returns a copy of e. A nil map clones to an empty one.
func (e FieldErrors) Clone() FieldErrors {
	if e == nil {
		return FieldErrors{}
	}
	return maps.Clone(e)
}

// Fields returns the fields that carry an error, sorted.
func (e FieldErrors) Fields() []string {
	return slices.Sorted(maps.Keys(e))
}

// ValidateFunc validates a set of values. Invalid data is reported through
// the returned FieldErrors; the error return is reserved for failures to
// validate at all (a remote check that is down, a cancelled context).
type ValidateFunc func(ctx context.Context, values Values) (FieldErrors, error)

// FieldValidator validates a single value and returns an empty message when
// the value is acceptable.
type FieldValidator func(ctx context.Context, value any) (string, error)

// StepValidator is an explicit validator attached to a step (or to the
// whole form). Covers lists the fields it is authoritative for; an empty
// Covers means every field of the step.
type StepValidator struct {
	Covers   []string
	Validate ValidateFunc
}

// ResolverConfig wires validators into a Resolver.
type ResolverConfig struct {
	Steps      map[string]StepValidator  // step ID -> validator
	Form       *StepValidator            // cross-step checks run on submit
	FieldTypes map[string]string         // field -> type tag
	Defaults   map[string]FieldValidator // type tag -> default validator
}

// Result is the outcome of validating a set of fields.
type Result struct {
	Valid  bool
	Errors FieldErrors
}

// Resolver decides what counts as valid for a step. It holds no mutable
// state, so identical inputs always give identical results.
type Resolver struct {
	dir        *Directory
	steps      map[string]StepValidator
	form       *StepValidator
	fieldTypes map[string]string
	defaults   map[string]FieldValidator
}

// NewResolver builds a Resolver for dir and checks the dispatch table up
// front: validators must be keyed by registered steps, and every typed
// field must be reachable by either a step validator or a type default.
func NewResolver(dir *Directory, cfg ResolverConfig) (*Resolver, error) {
	r := &Resolver{
		dir:        dir,
		steps:      maps.Clone(cfg.Steps),
		form:       cfg.Form,
		fieldTypes: maps.Clone(cfg.FieldTypes),
		defaults:   maps.Clone(cfg.Defaults),
	}

	for id, sv := range r.steps {
		step, err := dir.Get(id)
		if err != nil {
			return nil, err
		}
		if sv.Validate == nil {
			return nil, fmt.Errorf("step %q: validator has no Validate func", id)
		}
		for _, f := range sv.Covers {
			if !slices.Contains(step.Fields, f) {
				return nil, fmt.Errorf("step %q: validator covers foreign field %q", id, f)
			}
		}
	}

	for _, step := range dir.Steps() {
		for _, f := range step.Fields {
			tag := r.fieldTypes[f]
			if tag == "" || r.defaults[tag] != nil || r.covered(step.ID, f) {
				continue
			}
			return nil, &MissingDefaultError{Field: f, Type: tag}
		}
	}

	return r, nil
}

// covered reports whether the step validator for stepID owns field.
func (r *Resolver) covered(stepID, field string) bool {
	sv, ok := r.steps[stepID]
	if !ok {
		return false
	}
	if len(sv.Covers) == 0 {
		return true
	}
	return slices.Contains(sv.Covers, field)
}

// Resolve validates fields of the step stepID against values. The step
// validator decides for the fields it covers; type defaults decide for the
// rest. A step without fields is vacuously valid.
func (r *Resolver) Resolve(ctx context.Context, stepID string, fields []string, values Values) (Result, error) {
	if _, err := r.dir.Get(stepID); err != nil {
		return Result{}, err
	}

	errs := FieldErrors{}
	if len(fields) == 0 {
		return Result{Valid: true, Errors: errs}, nil
	}

	if sv, ok := r.steps[stepID]; ok {
		found, err := sv.Validate(ctx, values.Clone())
		if err != nil {
			return Result{}, err
		}
		for f, msg := range found {
			if msg != "" && slices.Contains(fields, f) && r.covered(stepID, f) {
				errs[f] = msg
			}
		}
	}

	for _, f := range fields {
		if r.covered(stepID, f) {
			continue
		}
		def := r.defaults[r.fieldTypes[f]]
		if def == nil {
			continue
		}
		msg, err := def(ctx, values[f])
		if err != nil {
			return Result{}, fmt.Errorf("field %q: %w", f, err)
		}
		if msg != "" {
			errs[f] = msg
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}, nil
}

// ResolveAll validates every step and then the form level validator.
// The returned map only holds steps that have errors; cross-step errors are
// attributed to the step owning the field, and a step's own verdict on a
// field takes precedence.
func (r *Resolver) ResolveAll(ctx context.Context, values Values) (map[string]FieldErrors, error) {
	byStep := make(map[string]FieldErrors)

	for _, step := range r.dir.Steps() {
		res, err := r.Resolve(ctx, step.ID, step.Fields, values)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.ID, err)
		}
		if !res.Valid {
			byStep[step.ID] = res.Errors
		}
	}

	if r.form == nil || r.form.Validate == nil {
		return byStep, nil
	}

	found, err := r.form.Validate(ctx, values.Clone())
	if err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}
	for f, msg := range found {
		if msg == "" {
			continue
		}
		if len(r.form.Covers) > 0 && !slices.Contains(r.form.Covers, f) {
			continue
		}
		owner, ok := r.dir.OwnerOf(f)
		if !ok {
			continue
		}
		if byStep[owner] == nil {
			byStep[owner] = FieldErrors{}
		}
		if _, exists := byStep[owner][f]; !exists {
			byStep[owner][f] = msg
		}
	}

	return byStep, nil
}
