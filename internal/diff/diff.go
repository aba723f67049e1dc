// Package diff renders the difference between two sets of form values as a
// unified diff.
package diff

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/mark3labs/stepform/internal/stepform"
)

// Render prints values as one "field: value" line per field, sorted by
// field, so two snapshots diff line by line.
func Render(values stepform.Values) string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(values)) {
		fmt.Fprintf(&b, "%s: %v\n", k, values[k])
	}
	return b.String()
}

// Values returns a unified diff from before to after. It is empty when both
// render identically.
func Values(oldLabel, newLabel string, before, after stepform.Values) string {
	return udiff.Unified(oldLabel, newLabel, Render(before), Render(after))
}

// Changed returns the fields whose rendered value differs, sorted.
func Changed(before, after stepform.Values) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range slices.Concat(slices.Collect(maps.Keys(before)), slices.Collect(maps.Keys(after))) {
		if seen[k] {
			continue
		}
		seen[k] = true
		_, inOld := before[k]
		_, inNew := after[k]
		if inOld != inNew || fmt.Sprint(before[k]) != fmt.Sprint(after[k]) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
