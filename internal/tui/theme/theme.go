package theme

import (
	"fmt"
	"slices"
	"sync"

	"charm.land/lipgloss/v2"
)

// Theme defines the color palette for the TUI.
type Theme struct {
	Name   string
	IsDark bool

	// Semantic colors
	Primary   string // lipgloss.Color is a string type
	Secondary string
	Tertiary  string

	// Background hierarchy (dark→light)
	BgBase     string
	BgMantle   string
	BgSurface0 string
	BgSurface1 string

	// Foreground hierarchy (dim→bright)
	FgMuted  string
	FgSubtle string
	FgBase   string
	FgBright string

	// Status colors
	Success string
	Warning string
	Error   string
	Info    string

	// Diff colors
	DiffInsertBg string
	DiffDeleteBg string

	// Lazy-built styles
	styles     *Styles
	stylesOnce sync.Once
}

// S returns the pre-built styles for this theme.
// Styles are lazily initialized on first call.
func (t *Theme) S() *Styles {
	t.stylesOnce.Do(func() {
		t.styles = t.buildStyles()
	})
	return t.styles
}

// buildStyles constructs the pre-built styles from theme colors.
func (t *Theme) buildStyles() *Styles {
	button := lipgloss.NewStyle().Padding(0, 2).MarginLeft(1).MarginRight(1)

	return &Styles{
		HeaderTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Primary)).
			Bold(true),

		ModalContainer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Secondary)).
			Padding(1, 2),
		ModalTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Primary)).
			Bold(true),

		HintKey:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)).Bold(true),
		HintDesc:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		HintSeparator: lipgloss.NewStyle().Foreground(lipgloss.Color(t.BgSurface1)),

		StepCurrent: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Primary)).Bold(true),
		StepValid:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)),
		StepInvalid: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
		StepPending: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),

		FieldLabel:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)),
		FieldLabelFocused: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Secondary)).Bold(true),
		FieldError:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
		FieldOption:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		FieldOptionActive: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Primary)).Bold(true),

		ButtonNormal:   button.Foreground(lipgloss.Color(t.FgBase)).Background(lipgloss.Color(t.BgSurface0)),
		ButtonDisabled: button.Foreground(lipgloss.Color(t.FgMuted)).Background(lipgloss.Color(t.BgMantle)),
		ButtonFocused:  button.Foreground(lipgloss.Color(t.BgBase)).Background(lipgloss.Color(t.Secondary)).Bold(true),

		StatusInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),
		StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)).Bold(true),
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),

		DiffInsert: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Background(lipgloss.Color(t.DiffInsertBg)),
		DiffDelete: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)).Background(lipgloss.Color(t.DiffDeleteBg)),
		DiffHeader: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() *Theme{
		"catppuccin-mocha": NewCatppuccinMocha,
		"catppuccin-latte": NewCatppuccinLatte,
	}
	current = NewCatppuccinMocha()
)

// Names lists the registered themes.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Current returns the active theme.
func Current() *Theme {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return current
}

// SetCurrent activates a registered theme by name.
func SetCurrent(name string) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	ctor, ok := registry[name]
	if !ok {
		return fmt.Errorf("unknown theme %q", name)
	}
	current = ctor()
	return nil
}
