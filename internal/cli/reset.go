// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/ctxutil"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// AddResetCommand adds the reset command to the root command.
func AddResetCommand(root *cobra.Command, flags *GlobalFlags) {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset <stage>",
		Short: "Reset a stage and everything after it",
		Long: `Reset a stage and all later stages to pending, then restart the flow
at that stage. Progress, timestamps, and deliverable checks of the
affected stages are discarded; notes are kept.

This is destructive, so a confirmation prompt is shown unless --force
is given.

Examples:
  aceflow reset implementation
  aceflow reset tasks_planning --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd.Context(), cmd.OutOrStdout(), flags, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	root.AddCommand(cmd)
}

func runReset(ctx context.Context, w io.Writer, flags *GlobalFlags, stageID string, force bool) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	ok, err := confirm(force,
		fmt.Sprintf("Reset stage '%s'?", stageID),
		"This discards the progress of this stage and every stage after it.")
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}
	if !ok {
		if flags.Output == OutputJSON {
			return printJSONError(w, aceerrors.ErrOperationCanceled)
		}
		_, _ = fmt.Fprintln(w, a.styles.dim.Render("Reset canceled."))
		return aceerrors.ErrOperationCanceled
	}

	st, err := a.engine.Reset(ctx, stageID)
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
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Flow reset to stage '%s'", st.Flow.CurrentStage)))
	_, _ = fmt.Fprintf(w, "Overall %s\n", progressBar(st.Flow.ProgressPercentage, 30))
	return nil
}
