// Package definition loads declarative YAML form definitions and builds the
// step directory, resolver and field registry for a form instance.
package definition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gosimple/slug"
	"github.com/mark3labs/stepform/internal/fields"
	"github.com/mark3labs/stepform/internal/hooks"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/mark3labs/stepform/internal/validators"
	"gopkg.in/yaml.v3"
)

// Form is the root of a definition file.
type Form struct {
	Name  string       `yaml:"name"`
	Title string       `yaml:"title,omitempty"`
	Steps []Step       `yaml:"steps"`
	Hooks hooks.Config `yaml:"hooks,omitempty"`
}

// Step is one screen of the form.
type Step struct {
	ID          string  `yaml:"id,omitempty"` // Derived from Label when empty
	Label       string  `yaml:"label"`
	Description string  `yaml:"description,omitempty"`
	Fields      []Field `yaml:"fields,omitempty"`
}

// Field is one input of a step together with its rules.
type Field struct {
	ID          string   `yaml:"id"`
	Label       string   `yaml:"label,omitempty"`
	Type        string   `yaml:"type,omitempty"`
	Required    bool     `yaml:"required,omitempty"`
	MinLength   int      `yaml:"min_length,omitempty"`
	MaxLength   int      `yaml:"max_length,omitempty"`
	Pattern     string   `yaml:"pattern,omitempty"`
	Min         *float64 `yaml:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty"`
	Options     []string `yaml:"options,omitempty"`
	Equals      string   `yaml:"equals,omitempty"`
	Default     any      `yaml:"default,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty"`
	Message     string   `yaml:"message,omitempty"`
}

// Load reads and parses a definition file.
func Load(path string) (*Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading form definition: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a definition, fills derived values and checks it.
// Unknown keys are rejected so typos surface before the form is shown.
func Parse(data []byte) (*Form, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Form
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing form definition: %w", err)
	}
	f.normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Form) normalize() {
	if f.Name == "" && f.Title != "" {
		f.Name = slug.Make(f.Title)
	}
	for i := range f.Steps {
		s := &f.Steps[i]
		if s.ID == "" {
			s.ID = slug.Make(s.Label)
		}
		for j := range s.Fields {
			fd := &s.Fields[j]
			if fd.Type == "" {
				fd.Type = validators.TypeText
				if len(fd.Options) > 0 {
					fd.Type = validators.TypeSelect
				}
			}
			if fd.Label == "" {
				fd.Label = fd.ID
			}
		}
	}
}

// Validate reports definition mistakes. Duplicate steps and fields are
// left to the directory so they surface with their typed errors.
func (f *Form) Validate() error {
	var errs []error
	if f.Name == "" {
		errs = append(errs, errors.New("form needs a name or title"))
	} else if !slug.IsSlug(f.Name) {
		errs = append(errs, fmt.Errorf("form name %q must be a slug (try %q)", f.Name, slug.Make(f.Name)))
	}
	if len(f.Steps) == 0 {
		errs = append(errs, errors.New("form needs at least one step"))
	}

	ids := make(map[string]bool)
	for _, s := range f.Steps {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("step %q needs an id or a label", s.Label))
		}
		for _, fd := range s.Fields {
			ids[fd.ID] = true
			if strings.TrimSpace(fd.ID) == "" {
				errs = append(errs, fmt.Errorf("step %q: field without id", s.ID))
			}
			if !validators.Known(fd.Type) {
				errs = append(errs, fmt.Errorf("field %q: unknown type %q", fd.ID, fd.Type))
			}
			if fd.Type == validators.TypeSelect && len(fd.Options) == 0 {
				errs = append(errs, fmt.Errorf("field %q: select needs options", fd.ID))
			}
		}
	}
	for _, s := range f.Steps {
		for _, fd := range s.Fields {
			if fd.Equals != "" && !ids[fd.Equals] {
				errs = append(errs, fmt.Errorf("field %q: equals unknown field %q", fd.ID, fd.Equals))
			}
		}
	}
	if err := f.Hooks.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Marshal renders the normalized definition back to YAML.
func (f *Form) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encoding form definition: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FieldCount returns the number of fields over all steps.
func (f *Form) FieldCount() int {
	n := 0
	for _, s := range f.Steps {
		n += len(s.Fields)
	}
	return n
}

// Directory builds the step directory.
func (f *Form) Directory() (*stepform.Directory, error) {
	steps := make([]stepform.Step, 0, len(f.Steps))
	for _, s := range f.Steps {
		ids := make([]string, 0, len(s.Fields))
		for _, fd := range s.Fields {
			ids = append(ids, fd.ID)
		}
		steps = append(steps, stepform.Step{
			ID:          s.ID,
			Label:       s.Label,
			Description: s.Description,
			Fields:      ids,
		})
	}
	return stepform.NewDirectory(steps)
}

// Registry builds a field registry seeded with default values.
func (f *Form) Registry() *fields.Registry {
	r := fields.NewRegistry()
	for _, s := range f.Steps {
		for _, fd := range s.Fields {
			r.Register(fields.Field{
				ID:          fd.ID,
				Label:       fd.Label,
				Type:        fd.Type,
				Placeholder: fd.Placeholder,
				Options:     fd.Options,
				Default:     fd.Default,
			})
		}
	}
	return r
}

// ResolverConfig compiles each step's field rules into a step validator.
// Fields without rules are left to the type defaults.
func (f *Form) ResolverConfig() (stepform.ResolverConfig, error) {
	cfg := stepform.ResolverConfig{
		Steps:      make(map[string]stepform.StepValidator),
		FieldTypes: make(map[string]string),
		Defaults:   validators.Defaults(),
	}
	for _, s := range f.Steps {
		var rules []validators.Rule
		for _, fd := range s.Fields {
			cfg.FieldTypes[fd.ID] = fd.Type
			r := fd.rule()
			if !r.Empty() {
				rules = append(rules, r)
			}
		}
		if len(rules) == 0 {
			continue
		}
		sv, err := validators.Compile(rules)
		if err != nil {
			return stepform.ResolverConfig{}, fmt.Errorf("step %q: %w", s.ID, err)
		}
		cfg.Steps[s.ID] = sv
	}
	return cfg, nil
}

func (fd Field) rule() validators.Rule {
	return validators.Rule{
		Field:     fd.ID,
		Type:      fd.Type,
		Required:  fd.Required,
		MinLength: fd.MinLength,
		MaxLength: fd.MaxLength,
		Pattern:   fd.Pattern,
		Min:       fd.Min,
		Max:       fd.Max,
		Options:   fd.Options,
		Equals:    fd.Equals,
		Message:   fd.Message,
	}
}

// Instance is everything needed to mount a form.
type Instance struct {
	Form      *Form
	Directory *stepform.Directory
	Resolver  *stepform.Resolver
	Registry  *fields.Registry
}

// Build assembles a directory, resolver and seeded registry. Callers
// mount the machine with stepform.New so they can pass their own options.
func (f *Form) Build() (*Instance, error) {
	dir, err := f.Directory()
	if err != nil {
		return nil, err
	}
	cfg, err := f.ResolverConfig()
	if err != nil {
		return nil, err
	}
	res, err := stepform.NewResolver(dir, cfg)
	if err != nil {
		return nil, err
	}
	return &Instance{Form: f, Directory: dir, Resolver: res, Registry: f.Registry()}, nil
}

// Mount builds the instance and a machine over it.
func (f *Form) Mount(opts ...stepform.Option) (*Instance, *stepform.Machine, error) {
	inst, err := f.Build()
	if err != nil {
		return nil, nil, err
	}
	m, err := stepform.New(inst.Directory, inst.Resolver, inst.Registry, opts...)
	if err != nil {
		return nil, nil, err
	}
	return inst, m, nil
}
