package validators

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/mark3labs/stepform/internal/stepform"
)

// Rule is the declarative validation attached to one field.
type Rule struct {
	Field     string
	Type      string
	Required  bool
	MinLength int
	MaxLength int
	Pattern   string
	Min       *float64
	Max       *float64
	Options   []string
	Equals    string // Another field this one must match
	Message   string // Overrides every message produced for this field
}

// Empty reports whether r adds nothing beyond its type default.
func (r Rule) Empty() bool {
	return !r.Required && r.MinLength == 0 && r.MaxLength == 0 && r.Pattern == "" &&
		r.Min == nil && r.Max == nil && len(r.Options) == 0 && r.Equals == ""
}

type compiled struct {
	Rule
	re *regexp.Regexp
}

// Compile turns rules into a step validator covering exactly the ruled
// fields. The type default of each field still runs inside the compiled
// validator, since a covered field no longer falls back to it.
func Compile(rules []Rule) (stepform.StepValidator, error) {
	defaults := Defaults()
	cs := make([]compiled, 0, len(rules))
	covers := make([]string, 0, len(rules))

	for _, r := range rules {
		c := compiled{Rule: r}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return stepform.StepValidator{}, fmt.Errorf("field %q: invalid pattern: %w", r.Field, err)
			}
			c.re = re
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return stepform.StepValidator{}, fmt.Errorf("field %q: min greater than max", r.Field)
		}
		cs = append(cs, c)
		covers = append(covers, r.Field)
	}

	validate := func(ctx context.Context, values stepform.Values) (stepform.FieldErrors, error) {
		errs := stepform.FieldErrors{}
		for _, c := range cs {
			msg, err := c.check(ctx, defaults[c.Type], values)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", c.Field, err)
			}
			if msg == "" {
				continue
			}
			if c.Message != "" {
				msg = c.Message
			}
			errs[c.Field] = msg
		}
		return errs, nil
	}

	return stepform.StepValidator{Covers: covers, Validate: validate}, nil
}

func (c compiled) check(ctx context.Context, def stepform.FieldValidator, values stepform.Values) (string, error) {
	v := values[c.Field]

	if IsEmpty(v) {
		if c.Required {
			return "required", nil
		}
		return "", nil
	}
	if c.Required && c.Type == TypeBool {
		if b, ok := Bool(v); ok && !b {
			return "required", nil
		}
	}

	if def != nil {
		if msg, err := def(ctx, v); err != nil || msg != "" {
			return msg, err
		}
	}

	s := String(v)
	n := utf8.RuneCountInString(s)
	if c.MinLength > 0 && n < c.MinLength {
		return fmt.Sprintf("must be at least %d characters", c.MinLength), nil
	}
	if c.MaxLength > 0 && n > c.MaxLength {
		return fmt.Sprintf("must be at most %d characters", c.MaxLength), nil
	}
	if c.re != nil && !c.re.MatchString(s) {
		return "has an invalid format", nil
	}
	if c.Min != nil || c.Max != nil {
		f, ok := Number(v)
		if !ok {
			return "must be a number", nil
		}
		if c.Min != nil && f < *c.Min {
			return fmt.Sprintf("must be at least %g", *c.Min), nil
		}
		if c.Max != nil && f > *c.Max {
			return fmt.Sprintf("must be at most %g", *c.Max), nil
		}
	}
	if len(c.Options) > 0 && !slices.Contains(c.Options, s) {
		return "must be one of the listed options", nil
	}
	if c.Equals != "" && s != String(values[c.Equals]) {
		return fmt.Sprintf("must match %s", c.Equals), nil
	}
	return "", nil
}
