// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aceflow-ai/aceflow/internal/ctxutil"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// AddGotoCommand adds the goto command to the root command.
func AddGotoCommand(root *cobra.Command, flags *GlobalFlags) {
	var force bool

	cmd := &cobra.Command{
		Use:   "goto <stage>",
		Short: "Jump focus to a stage",
		Long: `Move focus to any stage of the active mode, skipping the dependency
gate. A completed target keeps its completed status; any other target
becomes in progress.

With --force the target restarts from zero progress, even when it is
already the current stage. Jumping to the current stage without
--force does nothing.

Examples:
  aceflow goto testing
  aceflow goto implementation --force
  aceflow goto s3_testcases --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoto(cmd.Context(), cmd.OutOrStdout(), flags, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "restart the target stage from zero progress")

	root.AddCommand(cmd)
}

func runGoto(ctx context.Context, w io.Writer, flags *GlobalFlags, stageID string, force bool) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	// A forced jump discards the target's progress, so an interactive
	// session gets a confirmation prompt first.
	if force && term.IsTerminal(int(os.Stdin.Fd())) {
		ok, err := confirm(false,
			fmt.Sprintf("Restart stage '%s'?", stageID),
			"A forced jump resets the target stage to zero progress.")
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
			return aceerrors.ErrOperationCanceled
		}
	}

	st, err := a.engine.Goto(ctx, stageID, force)
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
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("▶ Now on stage '%s'", st.Flow.CurrentStage)))
	if rt := st.StageState(stageID); rt != nil {
		_, _ = fmt.Fprintf(w, "Status: %s %s\n", s.renderStatusIcon(rt.Status), s.dim.Render(rt.Status.String()))
	}
	return nil
}
