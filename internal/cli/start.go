// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/ctxutil"
)

// AddStartCommand adds the start command to the root command.
func AddStartCommand(root *cobra.Command, flags *GlobalFlags) {
	var (
		force    bool
		assignee string
	)

	cmd := &cobra.Command{
		Use:   "start <stage>",
		Short: "Start a stage",
		Long: `Start a stage and make it the current stage.

A stage can only start once all of its dependencies are completed.
With --force, unmet dependencies are marked completed first; the
engine's gate itself is never skipped. --assignee records who picks
the stage up.

Examples:
  aceflow start tasks_planning
  aceflow start implementation --force
  aceflow start test_design --assignee reviewer-agent`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), cmd.OutOrStdout(), flags, args[0], assignee, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "mark unmet dependencies completed before starting")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "record who works on the stage")

	root.AddCommand(cmd)
}

func runStart(ctx context.Context, w io.Writer, flags *GlobalFlags, stageID, assignee string, force bool) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	if force {
		if err := completeUnmetDependencies(ctx, a, stageID); err != nil {
			if flags.Output == OutputJSON {
				return printJSONError(w, err)
			}
			return err
		}
	}

	st, err := a.engine.Start(ctx, stageID, assignee)
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
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("▶ Stage '%s' started", stageID)))
	if rt := st.StageState(stageID); rt != nil {
		if rt.StartTime != nil {
			_, _ = fmt.Fprintf(w, "Started at: %s\n", s.dim.Render(rt.StartTime.Format("2006-01-02 15:04:05 MST")))
		}
		if rt.Assignee != "" {
			_, _ = fmt.Fprintf(w, "Assignee: %s\n", s.dim.Render(rt.Assignee))
		}
	}
	return nil
}

// completeUnmetDependencies force-completes the target's unmet direct
// dependencies so the dependency gate passes on its own terms.
func completeUnmetDependencies(ctx context.Context, a *app, stageID string) error {
	st, err := a.engine.Status(ctx)
	if err != nil {
		return err
	}

	def, err := a.catalog.StageByID(st.Project.Mode, stageID)
	if err != nil {
		return err
	}

	for _, dep := range def.Dependencies {
		if st.IsCompleted(dep) {
			continue
		}
		if _, _, err := a.engine.Complete(ctx, dep, "", true); err != nil {
			return err
		}
	}
	return nil
}
