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

// AddNextCommand adds the next command to the root command.
func AddNextCommand(root *cobra.Command, flags *GlobalFlags) {
	var force bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Advance to the next stage",
		Long: `Complete the current stage and move to the next one.

If the current stage is already completed, focus simply moves forward.
With --force the output gate is bypassed.

Examples:
  aceflow next
  aceflow next --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNext(cmd.Context(), cmd.OutOrStdout(), flags, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the output gate")

	root.AddCommand(cmd)
}

func runNext(ctx context.Context, w io.Writer, flags *GlobalFlags, force bool) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	// In an interactive session, confirm before closing out a stage that
	// has not been completed yet.
	if !force && term.IsTerminal(int(os.Stdin.Fd())) {
		cur, err := a.engine.Status(ctx)
		if err != nil {
			if flags.Output == OutputJSON {
				return printJSONError(w, err)
			}
			return err
		}
		if !cur.IsCompleted(cur.Flow.CurrentStage) {
			ok, err := confirm(false,
				fmt.Sprintf("Complete stage '%s' and advance?", cur.Flow.CurrentStage),
				"The stage is not marked completed yet.")
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(w, a.styles.dim.Render("Advance canceled."))
				return aceerrors.ErrOperationCanceled
			}
		}
	}

	st, err := a.engine.Advance(ctx, force)
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
	_, _ = fmt.Fprintf(w, "Overall %s\n", progressBar(st.Flow.ProgressPercentage, 30))
	if st.Flow.NextStage != "" {
		_, _ = fmt.Fprintf(w, "Next stage: %s\n", s.dim.Render(st.Flow.NextStage))
	}
	return nil
}
