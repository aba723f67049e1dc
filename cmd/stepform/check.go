package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mark3labs/stepform/internal/definition"
	"github.com/mark3labs/stepform/internal/watch"
	"github.com/spf13/cobra"
)

var checkFlags struct {
	print bool
	watch bool
}

var checkCmd = &cobra.Command{
	Use:   "check <form.yml>...",
	Short: "Validate form definitions",
	Long: `Parse and validate form definitions without opening them.

Reports unknown keys, unknown field types, duplicate steps or fields and
rules that reference missing fields. With --print the normalized definition
is written to stdout.

With --watch the definitions are checked again whenever they are saved,
until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVarP(&checkFlags.print, "print", "p", false, "Print the normalized definition")
	checkCmd.Flags().BoolVarP(&checkFlags.watch, "watch", "w", false, "Re-check definitions when they change")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkFlags.watch {
		return watchCheck(cmd, args)
	}
	return checkAll(cmd, args)
}

func checkAll(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		if err := checkOne(cmd, path); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s\n%v\n", path, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d definition(s) invalid", failed, len(args))
	}
	return nil
}

func checkOne(cmd *cobra.Command, path string) error {
	form, err := definition.Load(path)
	if err != nil {
		return err
	}
	if _, err := form.Build(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s: %s (%d steps, %d fields)\n", path, form.Name, len(form.Steps), form.FieldCount())
	if !checkFlags.print {
		return nil
	}
	data, err := form.Marshal()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, highlight(out, string(data), "yaml"))
	return err
}

// watchCheck runs an initial check and then re-checks each file as it
// changes. Invalid definitions are reported but do not stop the loop.
func watchCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(args...)
	if err != nil {
		return fmt.Errorf("watch definitions: %w", err)
	}
	w.Start()
	defer func() { _ = w.Stop() }()

	_ = checkAll(cmd, args)
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d definition(s), ctrl+c to stop\n", len(args))

	// Report paths the way they were given on the command line.
	given := make(map[string]string, len(args))
	for _, a := range args {
		if abs, err := filepath.Abs(a); err == nil {
			given[abs] = a
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case abs := <-w.Changes():
			path, ok := given[abs]
			if !ok {
				path = abs
			}
			if err := checkOne(cmd, path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s\n%v\n", path, err)
			}
		}
	}
}
