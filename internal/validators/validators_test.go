package validators

import (
	"context"
	"testing"

	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		tag     string
		value   any
		wantMsg bool
	}{
		{TypeText, "anything", false},
		{TypeText, 42, true},
		{TypeEmail, "", false},
		{TypeEmail, "ann@example.com", false},
		{TypeEmail, "not-an-email", true},
		{TypeEmail, "Ann <ann@example.com>", true},
		{TypeURL, "https://example.com/x", false},
		{TypeURL, "example.com", true},
		{TypeNumber, "12.5", false},
		{TypeNumber, 7, false},
		{TypeNumber, "seven", true},
		{TypeSlug, "my-form", false},
		{TypeSlug, "My Form", true},
		{TypeBool, true, false},
		{TypeBool, "false", false},
		{TypeBool, "maybe", true},
	}

	defaults := Defaults()
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			msg, err := defaults[tt.tag](ctx, tt.value)
			require.NoError(t, err)
			if tt.wantMsg {
				assert.NotEmpty(t, msg, "value %#v", tt.value)
			} else {
				assert.Empty(t, msg, "value %#v", tt.value)
			}
		})
	}
}

func TestSlugMessageSuggestsSlug(t *testing.T) {
	msg, err := Defaults()[TypeSlug](context.Background(), "My Form")
	require.NoError(t, err)
	assert.Contains(t, msg, `"my-form"`)
}

func TestCompile(t *testing.T) {
	sv, err := Compile([]Rule{
		{Field: "name", Type: TypeText, Required: true, MaxLength: 5},
		{Field: "age", Type: TypeNumber, Min: ptr(18), Max: ptr(120)},
		{Field: "code", Type: TypeText, Pattern: `^[A-Z]{3}$`, Message: "use three capitals"},
		{Field: "plan", Type: TypeSelect, Options: []string{"free", "pro"}},
		{Field: "email", Type: TypeEmail, Required: true},
		{Field: "confirm", Type: TypePassword, Equals: "password"},
		{Field: "terms", Type: TypeBool, Required: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "code", "plan", "email", "confirm", "terms"}, sv.Covers)

	tests := []struct {
		name   string
		values stepform.Values
		want   stepform.FieldErrors
	}{
		{
			name: "all valid",
			values: stepform.Values{
				"name": "Ann", "age": "30", "code": "ABC", "plan": "pro",
				"email": "ann@example.com", "password": "s3cret", "confirm": "s3cret", "terms": true,
			},
			want: stepform.FieldErrors{},
		},
		{
			name:   "required fields missing",
			values: stepform.Values{"terms": false},
			want:   stepform.FieldErrors{"name": "required", "email": "required", "terms": "required"},
		},
		{
			name: "every rule broken",
			values: stepform.Values{
				"name": "Annabelle", "age": 12, "code": "abc", "plan": "gold",
				"email": "nope", "password": "a", "confirm": "b", "terms": "yes please",
			},
			want: stepform.FieldErrors{
				"name":    "must be at most 5 characters",
				"age":     "must be at least 18",
				"code":    "use three capitals",
				"plan":    "must be one of the listed options",
				"email":   "must be a valid email address",
				"confirm": "must match password",
				"terms":   "must be yes or no",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sv.Validate(context.Background(), tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile([]Rule{{Field: "x", Pattern: "("}})
	assert.Error(t, err)

	_, err = Compile([]Rule{{Field: "x", Min: ptr(5), Max: ptr(1)}})
	assert.Error(t, err)
}

func TestRuleEmpty(t *testing.T) {
	assert.True(t, Rule{Field: "x", Type: TypeText}.Empty())
	assert.False(t, Rule{Field: "x", Required: true}.Empty())
}
