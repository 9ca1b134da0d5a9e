// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/ctxutil"
)

// AddRollbackCommand adds the rollback command to the root command.
func AddRollbackCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Step back to the previous stage",
		Long: `Move focus back to the previous stage of the active mode.

The current stage returns to pending with zero progress and the
previous stage reopens as in progress.

Examples:
  aceflow rollback`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRollback(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	root.AddCommand(cmd)
}

func runRollback(ctx context.Context, w io.Writer, flags *GlobalFlags) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, err := a.engine.Revert(ctx)
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
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("↷ Rolled back to stage '%s'", st.Flow.CurrentStage)))
	_, _ = fmt.Fprintf(w, "Overall %s\n", progressBar(st.Flow.ProgressPercentage, 30))
	return nil
}
