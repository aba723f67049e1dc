// Package wizard is the terminal front end for a mounted form: one screen
// per step, navigation through the step state machine, and a review of the
// collected values before submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mark3labs/stepform/internal/definition"
	"github.com/mark3labs/stepform/internal/logger"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/mark3labs/stepform/internal/tui/theme"
)

var log = logger.Default.Named("tui")

// Options configures the wizard.
type Options struct {
	// OnSubmit runs with the values of a valid submission. An error keeps
	// the wizard open and is shown to the user.
	OnSubmit func(ctx context.Context, values stepform.Values) error
	// Previous is the last submitted payload, used for the review diff.
	Previous stepform.Values
}

// Result holds the outcome of a wizard run.
type Result struct {
	Submitted bool
	Values    stepform.Values
}

type statusKind int

const (
	statusNone statusKind = iota
	statusInfo
	statusWarning
	statusError
)

type transitionMsg struct {
	tr  stepform.Transition
	err error
}

type submitMsg struct {
	res stepform.SubmitResult
	err error
}

// Model is the BubbleTea model for a form.
type Model struct {
	ctx     context.Context
	inst    *definition.Instance
	machine *stepform.Machine
	opts    Options

	inputs map[string]*fieldInput
	focus  int // Index into the current step's fields, or len(fields)+button
	busy   bool

	status     string
	statusKind statusKind

	result    Result
	cancelled bool
	width     int
	height    int
}

// New creates the model for a mounted form.
func New(ctx context.Context, inst *definition.Instance, m *stepform.Machine, opts Options) *Model {
	model := &Model{
		ctx:     ctx,
		inst:    inst,
		machine: m,
		opts:    opts,
		inputs:  make(map[string]*fieldInput),
		width:   80,
		height:  24,
	}
	for _, f := range inst.Registry.Fields() {
		model.inputs[f.ID] = newFieldInput(f, inst.Registry.GetValue(f.ID))
	}
	return model
}

// Run is the entry point for the form wizard.
// It creates a standalone BubbleTea program, runs it, and returns the result.
func Run(ctx context.Context, inst *definition.Instance, m *stepform.Machine, opts Options) (*Result, error) {
	p := tea.NewProgram(New(ctx, inst, m, opts), tea.WithContext(ctx))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	model, ok := finalModel.(*Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	if model.cancelled {
		return &model.result, errCancelled
	}
	return &model.result, nil
}

var errCancelled = errors.New("wizard cancelled by user")

// IsCancelled reports whether err came from the user leaving the wizard.
func IsCancelled(err error) bool {
	return errors.Is(err, errCancelled)
}

// Init focuses the first field of the current step.
func (m *Model) Init() tea.Cmd {
	return m.focusFirst()
}

// currentFields returns the field IDs of the active step.
func (m *Model) currentFields() []string {
	step, _ := m.machine.Directory().Get(m.machine.CurrentStepID())
	return step.Fields
}

// buttonFocus returns the focused button, or -1 when a field has focus.
func (m *Model) buttonFocus() int {
	n := len(m.currentFields())
	if m.focus < n {
		return -1
	}
	return m.focus - n
}

func (m *Model) focusedInput() *fieldInput {
	ids := m.currentFields()
	if m.focus < len(ids) {
		return m.inputs[ids[m.focus]]
	}
	return nil
}

// focusFirst focuses the first field, or Next when the step has none.
func (m *Model) focusFirst() tea.Cmd {
	if n := len(m.currentFields()); n == 0 {
		return m.focusField(buttonNext)
	}
	return m.focusField(0)
}

func (m *Model) focusField(i int) tea.Cmd {
	ids := m.currentFields()
	total := len(ids) + 2
	m.focus = ((i % total) + total) % total
	for _, in := range m.inputs {
		in.Blur()
	}
	if in := m.focusedInput(); in != nil {
		return in.Focus()
	}
	return nil
}

// syncField writes an input's value into the registry.
func (m *Model) syncField(id string) {
	if in, ok := m.inputs[id]; ok {
		m.inst.Registry.SetValue(id, in.Value())
	}
}

func (m *Model) syncStep() {
	for _, id := range m.currentFields() {
		m.syncField(id)
	}
}

func (m *Model) setStatus(kind statusKind, format string, args ...any) {
	m.statusKind = kind
	m.status = fmt.Sprintf(format, args...)
}

// next validates the current step in the background.
func (m *Model) next() tea.Cmd {
	m.syncStep()
	m.busy = true
	ctx, machine := m.ctx, m.machine
	return func() tea.Msg {
		tr, err := machine.GoNext(ctx)
		return transitionMsg{tr: tr, err: err}
	}
}

func (m *Model) submit() tea.Cmd {
	m.syncStep()
	m.busy = true
	ctx, machine, onSubmit := m.ctx, m.machine, m.opts.OnSubmit
	return func() tea.Msg {
		res, err := machine.Submit(ctx, func(values stepform.Values) error {
			if onSubmit == nil {
				return nil
			}
			return onSubmit(ctx, values)
		}, nil)
		return submitMsg{res: res, err: err}
	}
}

// advance is the enter action: Next, or Submit on the last step.
func (m *Model) advance() tea.Cmd {
	if m.machine.IsLastStep() {
		return m.submit()
	}
	return m.next()
}

func (m *Model) back() tea.Cmd {
	m.syncStep()
	tr, err := m.machine.GoPrevious()
	if err != nil {
		return m.handleTransitionError(err)
	}
	return m.afterTransition(tr)
}

func (m *Model) jump(ordinal int) tea.Cmd {
	dir := m.machine.Directory()
	if ordinal < 0 || ordinal >= dir.Count() {
		return nil
	}
	m.syncStep()
	tr, err := m.machine.GoTo(dir.At(ordinal).ID)
	if err != nil {
		return m.handleTransitionError(err)
	}
	return m.afterTransition(tr)
}

func (m *Model) handleTransitionError(err error) tea.Cmd {
	switch {
	case errors.Is(err, stepform.ErrTransitionInProgress):
		m.setStatus(statusWarning, "Still validating, please wait")
	case errors.Is(err, stepform.ErrClosed):
		m.setStatus(statusError, "The form has been closed")
		return tea.Quit
	default:
		log.Error("Transition failed: %v", err)
		m.setStatus(statusError, "%v", err)
	}
	return nil
}

func (m *Model) afterTransition(tr stepform.Transition) tea.Cmd {
	switch tr.Outcome {
	case stepform.OutcomeValidationFailed:
		m.setStatus(statusError, "Fix %d field(s) before continuing", len(tr.Errors))
		// Focus the first failing field.
		for i, id := range m.currentFields() {
			if _, failed := tr.Errors[id]; failed {
				return m.focusField(i)
			}
		}
		return nil
	case stepform.OutcomeAtBoundary:
		m.setStatus(statusInfo, "Already at the %s step", boundaryName(tr))
		return nil
	}
	m.setStatus(statusNone, "")
	return m.focusFirst()
}

func boundaryName(tr stepform.Transition) string {
	if tr.Direction == stepform.DirectionBackward {
		return "first"
	}
	return "last"
}

// Update handles messages for the wizard.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, in := range m.inputs {
			in.SetWidth(m.contentWidth() - 4)
		}
		return m, nil

	case transitionMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, stepform.ErrTransitionInProgress) {
				m.busy = false
			}
			return m, m.handleTransitionError(msg.err)
		}
		m.busy = false
		return m, m.afterTransition(msg.tr)

	case submitMsg:
		m.busy = false
		return m, m.handleSubmit(msg)

	case FieldEditedMsg:
		if in, ok := m.inputs[msg.Field]; ok {
			in.SetText(strings.TrimRight(msg.Content, "\n"))
			m.syncField(msg.Field)
		}
		return m, nil

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}

	if in := m.focusedInput(); in != nil {
		cmd, _ := in.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "ctrl+c":
		m.cancelled = true
		return tea.Quit
	case "esc":
		if m.machine.IsFirstStep() {
			m.cancelled = true
			return tea.Quit
		}
		return m.back()
	case "tab", "down":
		return m.focusField(m.focus + 1)
	case "shift+tab", "up":
		return m.focusField(m.focus - 1)
	case "ctrl+enter", "ctrl+s":
		return m.advance()
	case "ctrl+e":
		if in := m.focusedInput(); in != nil && in.multiline() && editorAvailable() {
			return openEditor(in.field.ID, in.area.Value())
		}
		return nil
	case "enter":
		if btn := m.buttonFocus(); btn >= 0 {
			if btn == buttonBack {
				if m.machine.IsFirstStep() || m.busy {
					return nil
				}
				return m.back()
			}
			return m.advance()
		}
		if in := m.focusedInput(); in != nil && in.multiline() {
			break
		}
		return m.advance()
	}

	if strings.HasPrefix(key, "alt+") && len(key) == 5 && key[4] >= '1' && key[4] <= '9' {
		return m.jump(int(key[4] - '1'))
	}

	if in := m.focusedInput(); in != nil {
		cmd, changed := in.Update(msg)
		if changed {
			m.syncField(in.field.ID)
		}
		return cmd
	}
	if btn := m.buttonFocus(); btn >= 0 {
		switch key {
		case "left":
			return m.focusField(m.focus - 1)
		case "right":
			return m.focusField(m.focus + 1)
		}
	}
	return nil
}

func (m *Model) handleSubmit(msg submitMsg) tea.Cmd {
	if msg.err != nil {
		if errors.Is(msg.err, stepform.ErrTransitionInProgress) || errors.Is(msg.err, stepform.ErrClosed) {
			return m.handleTransitionError(msg.err)
		}
		log.Error("Submit failed: %v", msg.err)
		m.setStatus(statusError, "Submit failed: %v", msg.err)
		return nil
	}
	if !msg.res.Valid {
		m.setStatus(statusError, "%d step(s) need attention", len(msg.res.Errors))
		// Show the first failing step.
		for _, sv := range m.machine.View().Steps {
			if _, failed := msg.res.Errors[sv.ID]; !failed {
				continue
			}
			if sv.Ordinal == m.machine.CurrentIndex() {
				return nil
			}
			tr, err := m.machine.GoTo(sv.ID)
			if err != nil {
				return m.handleTransitionError(err)
			}
			cmd := m.afterTransition(tr)
			m.setStatus(statusError, "%d step(s) need attention", len(msg.res.Errors))
			return cmd
		}
		return nil
	}
	m.result = Result{Submitted: true, Values: msg.res.Values}
	m.setStatus(statusInfo, "Submitted")
	return tea.Quit
}

// Result returns the outcome so far.
func (m *Model) Result() Result {
	return m.result
}

func (m *Model) contentWidth() int {
	w := m.width - 10
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// View renders the wizard UI.
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.KeyboardEnhancements = tea.KeyboardEnhancements{
		ReportEventTypes: true, // Required for ctrl+enter
	}

	content := lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		theme.Current().S().ModalContainer.Width(m.contentWidth()).Render(m.render()),
	)

	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(content).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})

	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

// render builds the modal body for the current machine state.
func (m *Model) render() string {
	return stepform.Render(m.machine, m.renderView)
}

func (m *Model) renderView(v stepform.View) string {
	s := theme.Current().S()
	width := m.contentWidth() - 4
	cur := v.Current()

	var sections []string
	title := m.inst.Form.Title
	if title == "" {
		title = m.inst.Form.Name
	}
	sections = append(sections,
		s.ModalTitle.Render(fmt.Sprintf("%s - Step %d of %d: %s", title, v.CurrentIndex+1, len(v.Steps), cur.Label)),
		renderProgress(v.Progress, width),
		m.renderStepList(v),
		"",
	)

	if desc := renderMarkdown(cur.Description, width); desc != "" {
		sections = append(sections, desc, "")
	}

	for i, id := range cur.Fields {
		sections = append(sections, m.renderField(id, i == m.focus))
	}

	if v.Last {
		sections = append(sections, "", renderReview(v, m.inst.Registry, m.opts.Previous))
	}

	sections = append(sections, "")
	if m.status != "" {
		sections = append(sections, m.renderStatus())
	}

	bar := NewButtonBar(navButtons(v.First, v.Last, m.busy || v.Pending, m.buttonFocus()))
	bar.SetWidth(width)
	sections = append(sections, bar.Render(), "", m.renderHints(v))

	return strings.Join(sections, "\n")
}

func (m *Model) renderStepList(v stepform.View) string {
	s := theme.Current().S()
	parts := make([]string, len(v.Steps))
	for i, sv := range v.Steps {
		label := sv.Label
		if sv.Current {
			label = s.StepCurrent.Render(label)
		}
		parts[i] = stepMarker(sv) + " " + label
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderField(id string, focused bool) string {
	s := theme.Current().S()
	in := m.inputs[id]

	label := in.field.Label
	if label == "" {
		label = id
	}
	labelStyle := s.FieldLabel
	if focused {
		labelStyle = s.FieldLabelFocused
	}

	lines := []string{labelStyle.Render(label), in.View()}
	if msg := m.inst.Registry.Error(id); msg != "" {
		lines = append(lines, s.FieldError.Render("  "+msg))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *Model) renderStatus() string {
	s := theme.Current().S()
	switch m.statusKind {
	case statusError:
		return s.StatusError.Render(m.status)
	case statusWarning:
		return s.StatusWarning.Render(m.status)
	}
	return s.StatusInfo.Render(m.status)
}

func (m *Model) renderHints(v stepform.View) string {
	action := "next"
	if v.Last {
		action = "submit"
	}
	pairs := []string{"tab", "field", "enter", action}
	if in := m.focusedInput(); in != nil {
		if in.multiline() {
			pairs = []string{"tab", "field", "ctrl+s", action}
			if editorAvailable() {
				pairs = append(pairs, "ctrl+e", "edit")
			}
		}
		switch in.field.Type {
		case "select":
			pairs = append(pairs, "←→", "choose")
		case "bool":
			pairs = append(pairs, "space", "toggle")
		}
	}
	if v.First {
		pairs = append(pairs, "esc", "quit")
	} else {
		pairs = append(pairs, "esc", "back")
	}
	return renderHintBar(pairs...)
}
