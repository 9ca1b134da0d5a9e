// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/ctxutil"
	"github.com/aceflow-ai/aceflow/internal/errors"
)

// AddProgressCommand adds the progress command to the root command.
func AddProgressCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "progress <stage> <percent>",
		Short: "Update the progress of a stage",
		Long: `Update a stage's progress percentage (0-100).

Reaching 100 completes the stage, subject to the output gate, and moves
focus to the next stage. Progress can only move forward.

Examples:
  aceflow progress implementation 60
  aceflow progress testing 100 --output json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(cmd.Context(), cmd.OutOrStdout(), flags, args[0], args[1])
		},
	}

	root.AddCommand(cmd)
}

func runProgress(ctx context.Context, w io.Writer, flags *GlobalFlags, stageID, percentArg string) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	percent, err := strconv.Atoi(percentArg)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", errors.ErrInvalidProgress, percentArg)
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, err := a.engine.UpdateProgress(ctx, stageID, percent)
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
	if st.IsCompleted(stageID) {
		_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Stage '%s' completed", stageID)))
		if st.Flow.CurrentStage != stageID {
			_, _ = fmt.Fprintf(w, "Current stage: %s\n", s.info.Render(st.Flow.CurrentStage))
		}
		return nil
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", s.info.Render(stageID), progressBar(percent, 30))
	return nil
}
