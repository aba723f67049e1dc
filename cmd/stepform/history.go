package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/mark3labs/stepform/internal/diff"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded drafts and submissions",
}

var historyListCmd = &cobra.Command{
	Use:   "list <form>",
	Short: "List recorded instances of a form",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryList,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff <form> <seq-a> <seq-b>",
	Short: "Diff two submissions of a form",
	Long: `Show a unified diff between two submissions of a form. Submissions are
identified by the sequence number printed by "history list".`,
	Args: cobra.ExactArgs(3),
	RunE: runHistoryDiff,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDiffCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	instances, err := st.ListInstances(ctx, args[0])
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No recorded instances of %s\n", args[0])
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("INSTANCE", "STEP", "VISITED", "SUBMISSIONS", "STATUS", "UPDATED")
	for _, inst := range instances {
		var seqs []string
		for _, sub := range inst.Submissions {
			seqs = append(seqs, strconv.FormatUint(sub.Seq, 10))
		}
		subs := "-"
		if len(seqs) > 0 {
			subs = strings.Join(seqs, ",")
		}
		status := "draft"
		switch {
		case len(inst.Errors) > 0:
			status = "invalid"
		case len(inst.Submissions) > 0:
			status = "submitted"
		}
		if inst.Closed && status == "draft" {
			status = "closed"
		}
		t.Row(
			inst.Instance,
			inst.CurrentStep,
			strconv.Itoa(len(inst.Visited)),
			subs,
			status,
			inst.UpdatedAt.Format(time.DateTime),
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sequence %q: %w", args[1], err)
	}
	b, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sequence %q: %w", args[2], err)
	}

	conn, st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	before, err := st.Submission(ctx, args[0], a)
	if err != nil {
		return err
	}
	after, err := st.Submission(ctx, args[0], b)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	unified := diff.Values(
		fmt.Sprintf("%s#%d", args[0], a),
		fmt.Sprintf("%s#%d", args[0], b),
		before.Values, after.Values,
	)
	if unified == "" {
		fmt.Fprintln(out, "Submissions are identical")
		return nil
	}
	_, err = fmt.Fprint(out, highlight(out, unified, "diff"))
	return err
}
