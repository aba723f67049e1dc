package formmcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/stepform/internal/stepform"
)

// FieldState is one field as reported to the client.
type FieldState struct {
	ID      string   `json:"id"`
	Label   string   `json:"label,omitempty"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
	Value   any      `json:"value,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// StepState is one step as reported to the client.
type StepState struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Description string       `json:"description,omitempty"`
	Visited     bool         `json:"visited"`
	Valid       string       `json:"valid"`
	Current     bool         `json:"current,omitempty"`
	Fields      []FieldState `json:"fields,omitempty"`
}

// State is the form_state payload.
type State struct {
	Form     string      `json:"form"`
	Current  string      `json:"current"`
	First    bool        `json:"first"`
	Last     bool        `json:"last"`
	Progress float64     `json:"progress"`
	Steps    []StepState `json:"steps"`
}

// TransitionResult is the payload of the navigation tools.
type TransitionResult struct {
	Outcome string            `json:"outcome"`
	From    string            `json:"from"`
	To      string            `json:"to"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SubmitResult is the submit_form payload.
type SubmitResult struct {
	Valid  bool                         `json:"valid"`
	Values map[string]any               `json:"values,omitempty"`
	Errors map[string]map[string]string `json:"errors,omitempty"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("form_state",
			mcp.WithDescription("Show every step of the form with its fields, current values, validity and errors"),
		),
		s.handleFormState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_values",
			mcp.WithDescription("Set one or more field values. Values are not validated until the step is left or the form is submitted"),
			mcp.WithObject("values", mcp.Required(),
				mcp.Description("Map of field ID to value"),
			),
		),
		s.handleSetValues,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("next_step",
			mcp.WithDescription("Validate the current step and advance to the next one"),
		),
		s.handleNextStep,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("previous_step",
			mcp.WithDescription("Go back one step without validating"),
		),
		s.handlePreviousStep,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("goto_step",
			mcp.WithDescription("Jump to a step by ID without validating"),
			mcp.WithString("step", mcp.Required(),
				mcp.Description("ID of the target step"),
			),
		),
		s.handleGotoStep,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("submit_form",
			mcp.WithDescription("Validate every step and submit the form"),
		),
		s.handleSubmitForm,
	)
}

// Snapshot builds the form_state payload for the current machine state.
func (s *Server) Snapshot() State {
	view := s.machine.View()
	reg := s.inst.Registry
	state := State{
		Form:     s.inst.Form.Name,
		Current:  view.CurrentID,
		First:    view.First,
		Last:     view.Last,
		Progress: view.Progress,
		Steps:    make([]StepState, 0, len(view.Steps)),
	}
	for _, sv := range view.Steps {
		st := StepState{
			ID:          sv.ID,
			Label:       sv.Label,
			Description: sv.Description,
			Visited:     sv.State.Visited,
			Valid:       sv.State.Valid.String(),
			Current:     sv.Current,
		}
		for _, id := range sv.Fields {
			f, _ := reg.Field(id)
			st.Fields = append(st.Fields, FieldState{
				ID:      id,
				Label:   f.Label,
				Type:    f.Type,
				Options: f.Options,
				Value:   reg.GetValue(id),
				Error:   reg.Error(id),
			})
		}
		state.Steps = append(state.Steps, st)
	}
	return state
}

func (s *Server) handleFormState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.Snapshot())
}

func (s *Server) handleSetValues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}
	raw, ok := args["values"]
	if !ok {
		return mcp.NewToolResultError("missing 'values' parameter"), nil
	}
	values, ok := raw.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("'values' is not an object"), nil
	}
	if len(values) == 0 {
		return mcp.NewToolResultError("at least one value is required"), nil
	}

	for id := range values {
		if _, known := s.inst.Registry.Field(id); !known {
			return mcp.NewToolResultError(fmt.Sprintf("unknown field %q", id)), nil
		}
	}
	s.inst.Registry.SetValues(stepform.Values(values))
	log.Debug("Set %d value(s) on %s", len(values), s.inst.Form.Name)

	return jsonResult(s.Snapshot())
}

func (s *Server) handleNextStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tr, err := s.machine.GoNext(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return s.transitionResult(tr)
}

func (s *Server) handlePreviousStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tr, err := s.machine.GoPrevious()
	if err != nil {
		return toolError(err), nil
	}
	return s.transitionResult(tr)
}

func (s *Server) handleGotoStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}
	step, ok := args["step"].(string)
	if !ok || step == "" {
		return mcp.NewToolResultError("step parameter must be a non-empty string"), nil
	}

	tr, err := s.machine.GoTo(step)
	if err != nil {
		return toolError(err), nil
	}
	return s.transitionResult(tr)
}

func (s *Server) handleSubmitForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var submitErr error
	res, err := s.machine.Submit(ctx, func(values stepform.Values) error {
		if s.onSubmit == nil {
			return nil
		}
		submitErr = s.onSubmit(ctx, values)
		return submitErr
	}, nil)
	if err != nil {
		if submitErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("submission rejected: %v", submitErr)), nil
		}
		return toolError(err), nil
	}

	out := SubmitResult{Valid: res.Valid}
	if res.Valid {
		out.Values = res.Values
	} else {
		out.Errors = make(map[string]map[string]string, len(res.Errors))
		for step, errs := range res.Errors {
			out.Errors[step] = map[string]string(errs)
		}
	}
	return jsonResult(out)
}

func (s *Server) transitionResult(tr stepform.Transition) (*mcp.CallToolResult, error) {
	out := TransitionResult{
		Outcome: tr.Outcome.String(),
		From:    s.machine.Directory().At(tr.From).ID,
		To:      tr.StepID,
		Errors:  tr.Errors,
	}
	return jsonResult(out)
}

func toolError(err error) *mcp.CallToolResult {
	var unknown *stepform.UnknownStepError
	switch {
	case errors.Is(err, stepform.ErrTransitionInProgress):
		return mcp.NewToolResultError("another transition is in progress - wait for it to finish and retry")
	case errors.Is(err, stepform.ErrClosed):
		return mcp.NewToolResultError("the form has been closed")
	case errors.As(err, &unknown):
		return mcp.NewToolResultError(fmt.Sprintf("unknown step %q", unknown.ID))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
