package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCurrent(t *testing.T) {
	t.Cleanup(func() { _ = SetCurrent("catppuccin-mocha") })

	assert.Equal(t, "catppuccin-mocha", Current().Name)

	require.NoError(t, SetCurrent("catppuccin-latte"))
	assert.Equal(t, "catppuccin-latte", Current().Name)
	assert.False(t, Current().IsDark)

	err := SetCurrent("solarized")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown theme")
	assert.Equal(t, "catppuccin-latte", Current().Name, "failed switch keeps the active theme")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"catppuccin-latte", "catppuccin-mocha"}, Names())
}

func TestStylesAreCached(t *testing.T) {
	th := NewCatppuccinMocha()
	assert.Same(t, th.S(), th.S())
}

func TestInterpolateColor(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		pos  float64
		want string
	}{
		{"start", "#000000", "#ffffff", 0, "#000000"},
		{"end", "#000000", "#ffffff", 1, "#ffffff"},
		{"middle", "#000000", "#fefefe", 0.5, "#7f7f7f"},
		{"no hash", "ff0000", "0000ff", 0, "#ff0000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpolateColor(tt.a, tt.b, tt.pos))
		})
	}
}

func TestApplyGradient(t *testing.T) {
	assert.Empty(t, ApplyGradient("", "#000000", "#ffffff"))
	out := ApplyGradient("a b", "#000000", "#ffffff")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, " ")
	assert.Contains(t, out, "b")
}
