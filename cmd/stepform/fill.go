package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mark3labs/stepform/internal/fields"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/mark3labs/stepform/internal/validators"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var fillFlags struct {
	set    []string
	from   string
	output string
}

var fillCmd = &cobra.Command{
	Use:   "fill <form.yml>",
	Short: "Fill in and submit a form without a terminal UI",
	Long: `Set field values from flags or a YAML file, walk the form step by step
and submit it.

On success the payload is printed to stdout. Otherwise the errors are
listed by step on stderr and the command exits non-zero.`,
	Example: `  stepform fill signup.yml --set name=Ada --set email=ada@example.com
  stepform fill signup.yml --from answers.yml -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().StringArrayVarP(&fillFlags.set, "set", "s", nil, "Field value as field=value (repeatable)")
	fillCmd.Flags().StringVarP(&fillFlags.from, "from", "f", "", "YAML file of field values")
	fillCmd.Flags().StringVarP(&fillFlags.output, "output", "o", "yaml", "Payload format: yaml or json")
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx, args[0], "")
	if err != nil {
		return err
	}
	defer sess.Close()

	values, err := collectValues(sess.inst.Registry, fillFlags.from, fillFlags.set)
	if err != nil {
		return err
	}
	sess.inst.Registry.SetValues(values)

	// Walk forward so each step is validated and recorded in order.
	for !sess.machine.IsLastStep() {
		tr, err := sess.machine.GoNext(ctx)
		if err != nil {
			return err
		}
		if tr.Outcome != stepform.OutcomeMoved {
			break
		}
	}

	res, err := submitFill(cmd, sess)
	if err != nil {
		return err
	}
	return writeValues(cmd.OutOrStdout(), res.Values, fillFlags.output)
}

// submitFill submits the session's form, running its hooks. Piped hook
// output goes to stderr even when a later hook rejects the submission. An
// invalid form is reported by step and returned as an error.
func submitFill(cmd *cobra.Command, sess *formSession) (stepform.SubmitResult, error) {
	ctx := cmd.Context()

	var hookOutput string
	res, err := sess.machine.Submit(ctx, func(values stepform.Values) error {
		out, err := sess.submitAction(ctx, values)
		hookOutput = out
		return err
	}, nil)
	if hookOutput != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), strings.TrimRight(hookOutput, "\n"))
	}
	if err != nil {
		return res, err
	}
	if !res.Valid {
		printErrors(cmd, sess.machine.Directory(), res.Errors)
		return res, fmt.Errorf("form %s is invalid: %d step(s) failed", sess.inst.Form.Name, len(res.Errors))
	}
	return res, nil
}

// collectValues merges values from a YAML file and --set flags, flags
// last. Values are converted to the declared field type.
func collectValues(reg *fields.Registry, from string, set []string) (stepform.Values, error) {
	values := stepform.Values{}
	if from != "" {
		data, err := os.ReadFile(from)
		if err != nil {
			return nil, fmt.Errorf("reading values: %w", err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", from, err)
		}
	}
	for _, kv := range set {
		id, raw, ok := strings.Cut(kv, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --set %q (want field=value)", kv)
		}
		values[id] = raw
	}

	for id, v := range values {
		f, ok := reg.Field(id)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", id)
		}
		values[id] = coerce(f, v)
	}
	return values, nil
}

// coerce converts string input for number and bool fields. Input that does
// not parse is kept so the validator reports it.
func coerce(f fields.Field, v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch f.Type {
	case validators.TypeNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n
		}
	case validators.TypeBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return s
}

func printErrors(cmd *cobra.Command, dir *stepform.Directory, byStep map[string]stepform.FieldErrors) {
	w := cmd.ErrOrStderr()
	for _, step := range dir.Steps() {
		errs, failed := byStep[step.ID]
		if !failed {
			continue
		}
		fmt.Fprintf(w, "%s:\n", step.Label)
		for _, id := range errs.Fields() {
			fmt.Fprintf(w, "  %s: %s\n", id, errs[id])
		}
	}
}
