// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/ctxutil"
)

// AddSuggestCommand adds the suggest command to the root command.
func AddSuggestCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest the next action",
		Long: `Suggest what to do next based on the flow position: resolve blocking
issues first, then push the current stage's progress, then move to the
next stage.

Examples:
  aceflow suggest
  aceflow suggest --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuggest(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	root.AddCommand(cmd)
}

func runSuggest(ctx context.Context, w io.Writer, flags *GlobalFlags) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, err := a.engine.Status(ctx)
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	suggestions, err := a.nav.Suggest(st)
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	if flags.Output == OutputJSON {
		return printJSON(w, suggestions)
	}

	s := a.styles
	if len(suggestions) == 0 {
		_, _ = fmt.Fprintln(w, s.success.Render("✓ Nothing to do, the flow is complete."))
		return nil
	}

	for _, sug := range suggestions {
		marker := s.info.Render("→")
		if sug.Priority == constants.PriorityHigh {
			marker = s.warn.Render("!")
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", marker, sug.Message)
		if sug.Rationale != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", s.dim.Render(sug.Rationale))
		}
		_, _ = fmt.Fprintf(w, "  %s\n", s.dim.Render("run: "+sug.SuggestedAction))
	}
	return nil
}
