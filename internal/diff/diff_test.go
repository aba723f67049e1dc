package diff

import (
	"strings"
	"testing"

	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	got := Render(stepform.Values{"b": 2, "a": "x"})
	assert.Equal(t, "a: x\nb: 2\n", got)
}

func TestValues(t *testing.T) {
	old := stepform.Values{"name": "Ann", "plan": "free"}
	after := stepform.Values{"name": "Ann", "plan": "team", "seats": 3}

	d := Values("submission 4", "submission 9", old, after)
	assert.True(t, strings.HasPrefix(d, "--- submission 4\n+++ submission 9\n"), d)
	assert.Contains(t, d, "-plan: free\n")
	assert.Contains(t, d, "+plan: team\n")
	assert.Contains(t, d, "+seats: 3\n")
	assert.NotContains(t, d, "-name: Ann")

	assert.Empty(t, Values("a", "b", old, old))
}

func TestChanged(t *testing.T) {
	old := stepform.Values{"name": "Ann", "plan": "free", "gone": true}
	after := stepform.Values{"name": "Ann", "plan": "team", "seats": 3}

	assert.Equal(t, []string{"gone", "plan", "seats"}, Changed(old, after))
	assert.Empty(t, Changed(old, old))
}
