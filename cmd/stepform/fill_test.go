package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/stepform/internal/definition"
	"github.com/mark3labs/stepform/internal/fields"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *fields.Registry {
	return fields.NewRegistry(
		fields.Field{ID: "name", Type: "text"},
		fields.Field{ID: "seats", Type: "number"},
		fields.Field{ID: "agree", Type: "bool"},
	)
}

func TestCollectValues(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "values.yml")
	require.NoError(t, os.WriteFile(from, []byte("name: Grace\nseats: 3\n"), 0644))

	tests := []struct {
		name    string
		from    string
		set     []string
		want    stepform.Values
		wantErr string
	}{
		{
			name: "flags are typed",
			set:  []string{"name=Ada", "seats=12", "agree=true"},
			want: stepform.Values{"name": "Ada", "seats": float64(12), "agree": true},
		},
		{
			name: "unparseable number is kept",
			set:  []string{"seats=many"},
			want: stepform.Values{"seats": "many"},
		},
		{
			name: "value may contain equals",
			set:  []string{"name=a=b"},
			want: stepform.Values{"name": "a=b"},
		},
		{
			name: "flags override file",
			from: from,
			set:  []string{"name=Ada"},
			want: stepform.Values{"name": "Ada", "seats": 3},
		},
		{name: "missing equals", set: []string{"name"}, wantErr: "want field=value"},
		{name: "unknown field", set: []string{"nope=1"}, wantErr: `unknown field "nope"`},
		{name: "missing file", from: filepath.Join(dir, "missing.yml"), wantErr: "reading values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectValues(testRegistry(), tt.from, tt.set)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeValues(t *testing.T) {
	values := stepform.Values{"name": "Ada", "seats": 3}

	out, err := encodeValues(values, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: Ada\nseats: 3\n", out)

	out, err = encodeValues(values, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada","seats":3}`, out)

	_, err = encodeValues(values, "toml")
	assert.Error(t, err)
}

func TestHighlightPlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, "a: 1\n", highlight(&buf, "a: 1\n", "yaml"))
}

func TestFillCommand(t *testing.T) {
	signup, err := filepath.Abs(filepath.Join("..", "..", "internal", "definition", "testdata", "signup.yml"))
	require.NoError(t, err)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{
		"fill", signup, "--no-persist",
		"--set", "name=Ada Lovelace",
		"--set", "email=ada@example.com",
		"--set", "workspace=analytical-engine",
		"--set", "password=difference",
		"--set", "password_confirm=difference",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), errOut.String())

	assert.Contains(t, out.String(), "name: Ada Lovelace")
	assert.Contains(t, out.String(), "plan: team")
	assert.Contains(t, out.String(), "seats: 5")
}

const hookedForm = `name: notify
steps:
  - label: Contact
    fields:
      - id: name
        required: true
hooks:
  on_submit:
    - command: echo "saved {{form}}"
      pipe_output: true
    - command: echo nope >&2; exit 3
`

func TestSubmitFill_PrintsHookOutputWhenRejected(t *testing.T) {
	form, err := definition.Parse([]byte(hookedForm))
	require.NoError(t, err)
	inst, err := form.Build()
	require.NoError(t, err)
	m, err := stepform.New(inst.Directory, inst.Resolver, inst.Registry)
	require.NoError(t, err)
	inst.Registry.SetValue("name", "Ada")

	sess := &formSession{inst: inst, machine: m, workDir: t.TempDir()}

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	res, err := submitFill(cmd, sess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.True(t, res.Valid)
	assert.NotNil(t, res.Rejected)
	assert.Equal(t, "saved notify\n", errOut.String())
	assert.Empty(t, out.String())
}
