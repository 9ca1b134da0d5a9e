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

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project flow status",
		Long: `Show the project's flow position: every stage of the active mode with
its status and progress, overall progress, and any unresolved issues.

Examples:
  aceflow status
  aceflow status --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	root.AddCommand(cmd)
}

func runStatus(ctx context.Context, w io.Writer, flags *GlobalFlags) error {
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

	if flags.Output == OutputJSON {
		return printJSON(w, st)
	}

	stages, err := a.catalog.StagesForMode(st.Project.Mode)
	if err != nil {
		return err
	}

	s := a.styles
	_, _ = fmt.Fprintln(w, s.header.Render(fmt.Sprintf("%s (%s mode)", st.Project.Name, st.Project.Mode)))
	_, _ = fmt.Fprintf(w, "Overall %s\n", progressBar(st.Flow.ProgressPercentage, 30))
	_, _ = fmt.Fprintln(w)

	for _, def := range stages {
		rt := st.StageState(def.ID)
		_, _ = fmt.Fprintln(w, stageLine(s, def, rt, def.ID == st.Flow.CurrentStage))
	}

	unresolved := 0
	for _, abn := range st.Abnormalities {
		if abn.Status == constants.AbnormalityUnresolved {
			unresolved++
		}
	}
	if unresolved > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, s.warn.Render(fmt.Sprintf("⚠ %d unresolved issue(s), see 'aceflow issue list'", unresolved)))
	}

	if st.Flow.NextStage != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "Next stage: %s\n", s.dim.Render(st.Flow.NextStage))
	}
	return nil
}
