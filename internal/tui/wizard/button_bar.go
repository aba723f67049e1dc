package wizard

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mark3labs/stepform/internal/tui/theme"
)

// ButtonState represents the visual state of a button.
type ButtonState int

const (
	ButtonNormal   ButtonState = iota // Normal state (enabled)
	ButtonDisabled                    // Disabled state (grayed out)
	ButtonFocused                     // Focused/highlighted state
)

// Button represents a single button in the button bar.
type Button struct {
	Label string
	State ButtonState
}

// ButtonBar manages a set of buttons with consistent styling.
type ButtonBar struct {
	buttons []Button
	width   int
}

// NewButtonBar creates a new button bar with the given buttons.
func NewButtonBar(buttons []Button) *ButtonBar {
	return &ButtonBar{
		buttons: buttons,
		width:   60,
	}
}

// SetWidth updates the width for the button bar.
func (b *ButtonBar) SetWidth(width int) {
	b.width = width
}

// Render renders the button bar centered in its width.
func (b *ButtonBar) Render() string {
	if len(b.buttons) == 0 {
		return ""
	}

	s := theme.Current().S()
	var rendered []string
	for _, btn := range b.buttons {
		switch btn.State {
		case ButtonDisabled:
			rendered = append(rendered, s.ButtonDisabled.Render(btn.Label))
		case ButtonFocused:
			rendered = append(rendered, s.ButtonFocused.Render(btn.Label))
		default:
			rendered = append(rendered, s.ButtonNormal.Render(btn.Label))
		}
	}

	return lipgloss.PlaceHorizontal(b.width, lipgloss.Center, strings.Join(rendered, ""))
}

// Button indexes within the navigation bar.
const (
	buttonBack = iota
	buttonNext
)

// navButtons builds the Back/Next bar. On the last step Next reads Submit.
// focused is the focused button index, or -1 when a field has focus.
func navButtons(first, last, busy bool, focused int) []Button {
	back := Button{Label: "← Back", State: ButtonNormal}
	if first || busy {
		back.State = ButtonDisabled
	}
	next := Button{Label: "Next →", State: ButtonNormal}
	if last {
		next.Label = "Submit"
	}
	if busy {
		next.State = ButtonDisabled
	}

	buttons := []Button{back, next}
	if focused >= 0 && focused < len(buttons) && buttons[focused].State != ButtonDisabled {
		buttons[focused].State = ButtonFocused
	}
	return buttons
}
