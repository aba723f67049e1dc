package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/stepform/internal/logger"
	"github.com/mark3labs/stepform/internal/stepform"
	"github.com/mark3labs/stepform/internal/tui/wizard"
	"github.com/spf13/cobra"
)

var runFlags struct {
	resume string
	output string
}

var runCmd = &cobra.Command{
	Use:   "run <form.yml>",
	Short: "Fill in a form interactively",
	Long: `Open a form definition in the terminal wizard.

Each step is validated before you can move on. The last step shows a review
of every value, including what changed since the form's last submission.
On submit the payload is printed to stdout.

Drafts are recorded as you go. Quit with esc on the first step or ctrl+c
and pick up where you left off with --resume.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.resume, "resume", "r", "", "Resume a recorded form instance")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "yaml", "Payload format: yaml or json")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx, args[0], runFlags.resume)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Hook output is held until the wizard has left the alt screen.
	var hookOutput string
	res, err := wizard.Run(ctx, sess.inst, sess.machine, wizard.Options{
		Previous: sess.previous,
		OnSubmit: func(ctx context.Context, values stepform.Values) error {
			out, err := sess.submitAction(ctx, values)
			hookOutput = out
			return err
		},
	})
	if wizard.IsCancelled(err) {
		if id := sess.Instance(); id != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Draft saved. Resume with: stepform run %s --resume %s\n", args[0], id)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if sess.recorder != nil && sess.recorder.Err() != nil {
		logger.Warn("Some events were not recorded: %v", sess.recorder.Err())
	}
	if !res.Submitted {
		return nil
	}
	if hookOutput != "" {
		fmt.Fprint(cmd.ErrOrStderr(), hookOutput)
	}
	return writeValues(cmd.OutOrStdout(), res.Values, runFlags.output)
}
