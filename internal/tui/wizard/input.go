package wizard

import (
	"slices"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/stepform/internal/fields"
	"github.com/mark3labs/stepform/internal/tui/theme"
	"github.com/mark3labs/stepform/internal/validators"
)

// fieldInput edits one field. Text-like types use a textinput, textarea
// fields a textarea, select fields cycle through their options and bool
// fields toggle.
type fieldInput struct {
	field   fields.Field
	input   textinput.Model
	area    textarea.Model
	option  int
	checked bool
	focused bool
	width   int
}

func newFieldInput(f fields.Field, value any) *fieldInput {
	in := &fieldInput{field: f, width: 50}

	switch f.Type {
	case validators.TypeTextarea:
		ta := textarea.New()
		ta.Placeholder = f.Placeholder
		ta.ShowLineNumbers = false
		ta.Prompt = ""
		ta.SetWidth(in.width)
		ta.SetHeight(4)
		ta.SetValue(validators.String(value))
		in.area = ta
	case validators.TypeSelect:
		in.option = max(0, slices.Index(f.Options, validators.String(value)))
	case validators.TypeBool:
		in.checked, _ = validators.Bool(value)
	default:
		ti := textinput.New()
		ti.Placeholder = f.Placeholder
		ti.Prompt = ""
		ti.SetStyles(inputStyles())
		ti.SetWidth(in.width)
		if f.Type == validators.TypePassword {
			ti.EchoMode = textinput.EchoPassword
		}
		ti.SetValue(validators.String(value))
		in.input = ti
	}
	return in
}

func inputStyles() textinput.Styles {
	t := theme.Current()
	return textinput.Styles{
		Focused: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgBase)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Secondary)),
		},
		Blurred: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		},
		Cursor: textinput.CursorStyle{
			Color: lipgloss.Color(t.Primary),
			Shape: tea.CursorBar,
			Blink: true,
		},
	}
}

func (f *fieldInput) multiline() bool {
	return f.field.Type == validators.TypeTextarea
}

// Value returns the typed value for the registry. Numbers that parse are
// stored as float64; anything else is stored as typed so the validator can
// report it.
func (f *fieldInput) Value() any {
	switch f.field.Type {
	case validators.TypeTextarea:
		return f.area.Value()
	case validators.TypeSelect:
		if len(f.field.Options) == 0 {
			return ""
		}
		return f.field.Options[f.option]
	case validators.TypeBool:
		return f.checked
	case validators.TypeNumber:
		raw := strings.TrimSpace(f.input.Value())
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
		return raw
	}
	return f.input.Value()
}

// SetText replaces the content of a text or textarea field.
func (f *fieldInput) SetText(s string) {
	if f.multiline() {
		f.area.SetValue(s)
		return
	}
	f.input.SetValue(s)
}

func (f *fieldInput) Focus() tea.Cmd {
	f.focused = true
	switch f.field.Type {
	case validators.TypeTextarea:
		return f.area.Focus()
	case validators.TypeSelect, validators.TypeBool:
		return nil
	}
	return f.input.Focus()
}

func (f *fieldInput) Blur() {
	f.focused = false
	f.area.Blur()
	f.input.Blur()
}

func (f *fieldInput) SetWidth(width int) {
	f.width = width
	if f.multiline() {
		f.area.SetWidth(width)
		return
	}
	f.input.SetWidth(width)
}

// Update forwards a message to the underlying widget. It reports whether
// the value may have changed.
func (f *fieldInput) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch f.field.Type {
	case validators.TypeSelect:
		key, ok := msg.(tea.KeyPressMsg)
		if !ok || len(f.field.Options) == 0 {
			return nil, false
		}
		switch key.String() {
		case "left", "h":
			f.option = (f.option - 1 + len(f.field.Options)) % len(f.field.Options)
			return nil, true
		case "right", "l", "space":
			f.option = (f.option + 1) % len(f.field.Options)
			return nil, true
		}
		return nil, false
	case validators.TypeBool:
		key, ok := msg.(tea.KeyPressMsg)
		if ok && (key.String() == "space" || key.String() == "y" || key.String() == "n") {
			switch key.String() {
			case "y":
				f.checked = true
			case "n":
				f.checked = false
			default:
				f.checked = !f.checked
			}
			return nil, true
		}
		return nil, false
	case validators.TypeTextarea:
		var cmd tea.Cmd
		f.area, cmd = f.area.Update(msg)
		return cmd, true
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd, true
}

func (f *fieldInput) View() string {
	s := theme.Current().S()
	switch f.field.Type {
	case validators.TypeSelect:
		parts := make([]string, len(f.field.Options))
		for i, opt := range f.field.Options {
			if i == f.option {
				parts[i] = s.FieldOptionActive.Render("[" + opt + "]")
			} else {
				parts[i] = s.FieldOption.Render(" " + opt + " ")
			}
		}
		return strings.Join(parts, " ")
	case validators.TypeBool:
		box := "[ ] no"
		if f.checked {
			box = "[x] yes"
		}
		if f.focused {
			return s.FieldOptionActive.Render(box)
		}
		return s.FieldOption.Render(box)
	case validators.TypeTextarea:
		return f.area.View()
	}
	return f.input.View()
}
