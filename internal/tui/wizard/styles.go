package wizard

import (
	"strings"

	"github.com/mark3labs/stepform/internal/tui/theme"
)

// renderHintBar renders a hint bar with the given key-description pairs.
// Example: renderHintBar("tab", "next field", "esc", "back")
// Returns: "tab next field • esc back"
func renderHintBar(pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ""
	}

	s := theme.Current().S()
	var b strings.Builder
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(" " + s.HintSeparator.Render("•") + " ")
		}
		b.WriteString(s.HintKey.Render(pairs[i]) + " " + s.HintDesc.Render(pairs[i+1]))
	}
	return b.String()
}

// renderProgress draws a bar whose filled part fades from the primary to
// the success color.
func renderProgress(progress float64, width int) string {
	if width < 4 {
		width = 4
	}
	t := theme.Current()
	filled := int(progress * float64(width))

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			pos := float64(i) / float64(max(width-1, 1))
			color := theme.InterpolateColor(t.Primary, t.Success, pos)
			b.WriteString(styleColor(color).Render("━"))
		} else {
			b.WriteString(styleColor(t.BgSurface1).Render("━"))
		}
	}
	return b.String()
}
