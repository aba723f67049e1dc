package definition

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Signup(t *testing.T) {
	f, err := Load("testdata/signup.yml")
	require.NoError(t, err)

	assert.Equal(t, "team-signup", f.Name)
	require.Len(t, f.Steps, 4)
	assert.Equal(t, []string{"personal", "workspace", "security", "review"},
		[]string{f.Steps[0].ID, f.Steps[1].ID, f.Steps[2].ID, f.Steps[3].ID})
	assert.Equal(t, "select", f.Steps[1].Fields[2].Type, "options imply select")
	assert.Equal(t, "name", f.Steps[0].Fields[0].ID)
	assert.Equal(t, 7, f.FieldCount())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "name: x\nsteps:\n  - label: A\n    colour: red\n"},
		{"no steps", "name: x\n"},
		{"no name", "steps:\n  - label: A\n"},
		{"name not a slug", "name: My Form\nsteps:\n  - label: A\n"},
		{"unknown type", "name: x\nsteps:\n  - label: A\n    fields:\n      - id: a\n        type: colour\n"},
		{"select without options", "name: x\nsteps:\n  - label: A\n    fields:\n      - id: a\n        type: select\n"},
		{"equals unknown", "name: x\nsteps:\n  - label: A\n    fields:\n      - id: a\n        equals: b\n"},
		{"step without id or label", "name: x\nsteps:\n  - fields: []\n"},
		{"hook without command", "name: x\nsteps:\n  - label: A\nhooks:\n  on_submit:\n    - timeout: 5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_Hooks(t *testing.T) {
	f, err := Parse([]byte("name: x\nsteps:\n  - label: A\nhooks:\n  on_submit:\n    - command: cat > out.json\n      pipe_output: true\n"))
	require.NoError(t, err)
	require.Len(t, f.Hooks.OnSubmit, 1)
	assert.Equal(t, "cat > out.json", f.Hooks.OnSubmit[0].Command)
	assert.True(t, f.Hooks.OnSubmit[0].PipeOutput)
}

func TestBuild_DuplicateStep(t *testing.T) {
	f, err := Parse([]byte("name: x\nsteps:\n  - label: Same\n  - id: same\n    label: Other\n"))
	require.NoError(t, err)

	_, err = f.Build()
	var dup *stepform.DuplicateStepError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "same", dup.ID)
}

func TestMount_WalkAndSubmit(t *testing.T) {
	f, err := Load("testdata/signup.yml")
	require.NoError(t, err)

	inst, m, err := f.Mount()
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, 5, inst.Registry.GetValue("seats"), "defaults are seeded")

	tr, err := m.GoNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, stepform.OutcomeValidationFailed, tr.Outcome)
	assert.Equal(t, stepform.FieldErrors{"name": "required", "email": "required"}, tr.Errors)
	assert.Equal(t, "required", inst.Registry.Error("name"))

	inst.Registry.SetValues(stepform.Values{"name": "Ann", "email": "ann@example.com"})
	tr, err = m.GoNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, stepform.OutcomeMoved, tr.Outcome)
	assert.Equal(t, "workspace", m.CurrentStepID())

	inst.Registry.SetValues(stepform.Values{"workspace": "Acme Inc", "seats": "0"})
	tr, err = m.GoNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, stepform.OutcomeValidationFailed, tr.Outcome)
	assert.Contains(t, tr.Errors["workspace"], `"acme-inc"`)
	assert.Equal(t, "must be at least 1", tr.Errors["seats"])

	inst.Registry.SetValues(stepform.Values{"workspace": "acme", "seats": "3"})
	_, err = m.GoTo("review")
	require.NoError(t, err)

	inst.Registry.SetValues(stepform.Values{"password": "longenough", "password_confirm": "different"})
	res, err := m.Submit(ctx, func(stepform.Values) error {
		t.Fatal("onValid must not run for an invalid form")
		return nil
	}, nil)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, map[string]stepform.FieldErrors{
		"security": {"password_confirm": "passwords do not match"},
	}, res.Errors)
	assert.Equal(t, "review", m.CurrentStepID())

	inst.Registry.SetValue("password_confirm", "longenough")
	var submitted stepform.Values
	res, err = m.Submit(ctx, func(v stepform.Values) error {
		submitted = v
		return nil
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "acme", submitted["workspace"])
	assert.Equal(t, 1.0, m.Progress())
}

func TestMarshal_RoundTrip(t *testing.T) {
	f, err := Load("testdata/signup.yml")
	require.NoError(t, err)

	data, err := f.Marshal()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, f, again)
}
