// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/ctxutil"
)

// AddDeliverableCommand adds the deliverable command group to the root command.
func AddDeliverableCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "deliverable",
		Short: "Check off stage deliverables",
		Long: `Manage the deliverable checklist of a stage. Checking deliverables
updates the stage's progress to the checked fraction.`,
	}

	check := &cobra.Command{
		Use:   "check <stage> <deliverable>",
		Short: "Mark a deliverable as done",
		Long: `Mark a deliverable of a stage as done.

Examples:
  aceflow deliverable check tasks_planning "WBS task breakdown"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeliverable(cmd.Context(), cmd.OutOrStdout(), flags, args[0], args[1], true)
		},
	}

	uncheck := &cobra.Command{
		Use:   "uncheck <stage> <deliverable>",
		Short: "Mark a deliverable as not done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeliverable(cmd.Context(), cmd.OutOrStdout(), flags, args[0], args[1], false)
		},
	}

	cmd.AddCommand(check, uncheck)
	root.AddCommand(cmd)
}

func runDeliverable(ctx context.Context, w io.Writer, flags *GlobalFlags, stageID, name string, done bool) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, err := a.engine.UpdateDeliverable(ctx, stageID, name, done)
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	if flags.Output == OutputJSON {
		return printJSON(w, st)
	}

	s := a.styles
	verb := "checked"
	if !done {
		verb = "unchecked"
	}
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Deliverable '%s' %s", name, verb)))
	if rt := st.StageState(stageID); rt != nil {
		_, _ = fmt.Fprintf(w, "%s %s\n", s.info.Render(stageID), progressBar(rt.Progress, 30))
		if def, err := a.catalog.StageByID(st.Project.Mode, stageID); err == nil {
			for _, d := range def.Deliverables {
				mark := "○"
				if rt.DeliverablesStatus[d] {
					mark = "✓"
				}
				_, _ = fmt.Fprintf(w, "  %s %s\n", mark, d)
			}
		}
	}
	return nil
}
