// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/ctxutil"
)

// AddCompleteCommand adds the complete command to the root command.
func AddCompleteCommand(root *cobra.Command, flags *GlobalFlags) {
	var (
		note  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "complete <stage>",
		Short: "Complete a stage",
		Long: `Mark a stage as completed and move focus to the next stage.

The stage's required output artifact must exist and be non-empty,
unless --force is given or the output gate is disabled in the
configuration. Unchecked deliverables produce warnings but do not
block completion.

Examples:
  aceflow complete analysis
  aceflow complete implementation --note "shipped v2 endpoints"
  aceflow complete testing --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd.Context(), cmd.OutOrStdout(), flags, args[0], note, force)
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "note to attach to the stage")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the output gate")

	root.AddCommand(cmd)
}

// completeResult is the JSON shape for complete output.
type completeResult struct {
	Stage    string   `json:"stage"`
	Warnings []string `json:"warnings,omitempty"`
	State    any      `json:"state"`
}

func runComplete(ctx context.Context, w io.Writer, flags *GlobalFlags, stageID, note string, force bool) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, warnings, err := a.engine.Complete(ctx, stageID, note, force)
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	if flags.Output == OutputJSON {
		return printJSON(w, completeResult{Stage: stageID, Warnings: warnings, State: st})
	}

	s := a.styles
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Stage '%s' completed", stageID)))
	renderWarnings(w, s, warnings)
	if st.Flow.CurrentStage != stageID {
		_, _ = fmt.Fprintf(w, "Current stage: %s\n", s.info.Render(st.Flow.CurrentStage))
	}
	_, _ = fmt.Fprintf(w, "Overall %s\n", progressBar(st.Flow.ProgressPercentage, 30))
	return nil
}
