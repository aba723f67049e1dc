package wizard

import (
	"fmt"
	"strings"

	"github.com/mark3labs/stepform/internal/diff"
	"github.com/mark3labs/stepform/internal/fields"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/mark3labs/stepform/internal/tui/theme"
	"github.com/mark3labs/stepform/internal/validators"
)

const masked = "••••••"

// maskSecrets replaces password values so they never reach the screen.
func maskSecrets(reg *fields.Registry, values stepform.Values) stepform.Values {
	out := values.Clone()
	for id, v := range out {
		if f, ok := reg.Field(id); ok && f.Type == validators.TypePassword && !validators.IsEmpty(v) {
			out[id] = masked
		}
	}
	return out
}

// renderReview lists every step's values. When a previous submission is
// known, changed values are shown as a diff against it.
func renderReview(view stepform.View, reg *fields.Registry, previous stepform.Values) string {
	s := theme.Current().S()
	values := maskSecrets(reg, reg.AllValues())

	var b strings.Builder
	b.WriteString(s.HeaderTitle.Render("Review"))
	b.WriteString("\n")
	for _, sv := range view.Steps {
		if len(sv.Fields) == 0 {
			continue
		}
		b.WriteString(stepMarker(sv) + " " + sv.Label + "\n")
		for _, id := range sv.Fields {
			f, _ := reg.Field(id)
			label := f.Label
			if label == "" {
				label = id
			}
			val := validators.String(values[id])
			if val == "" {
				val = s.StepPending.Render("(empty)")
			}
			fmt.Fprintf(&b, "  %s %s\n", s.FieldLabel.Render(label+":"), val)
		}
	}

	if previous != nil {
		before := maskSecrets(reg, previous)
		changed := diff.Changed(before, values)
		b.WriteString("\n")
		if len(changed) == 0 {
			b.WriteString(s.StepPending.Render("No changes since the last submission"))
		} else {
			b.WriteString(s.HeaderTitle.Render(fmt.Sprintf("Changes since last submission (%d)", len(changed))))
			b.WriteString("\n")
			b.WriteString(colorDiff(diff.Values("last submission", "this submission", before, values)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func colorDiff(unified string) string {
	s := theme.Current().S()
	lines := strings.Split(strings.TrimRight(unified, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			lines[i] = s.DiffHeader.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = s.DiffInsert.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = s.DiffDelete.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// stepMarker is the status glyph shown next to a step.
func stepMarker(sv stepform.StepView) string {
	s := theme.Current().S()
	switch {
	case sv.Current:
		return s.StepCurrent.Render("●")
	case sv.State.Valid == stepform.ValidityInvalid:
		return s.StepInvalid.Render("✗")
	case sv.State.Valid == stepform.ValidityValid:
		return s.StepValid.Render("✓")
	}
	return s.StepPending.Render("○")
}
