// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/ctxutil"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// AddModeCommand adds the mode command group to the root command.
func AddModeCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or switch the flow mode",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the active flow mode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModeShow(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	var (
		preserve bool
		force    bool
	)
	sw := &cobra.Command{
		Use:   "switch <target-mode>",
		Short: "Migrate the project to another flow mode",
		Long: `Migrate the project's state to another flow mode.

With --preserve (the default) stage progress is carried over using the
mode's mapping rules, falling back to name similarity when no mapping
exists. With --preserve=false the new mode starts fresh.

A per-stage migration preview is shown before the confirmation prompt.

Examples:
  aceflow mode switch standard
  aceflow mode switch complete --preserve=false --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModeSwitch(cmd.Context(), cmd.OutOrStdout(), flags, args[0], preserve, force)
		},
	}
	sw.Flags().BoolVar(&preserve, "preserve", true, "carry stage progress into the new mode")
	sw.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")

	cmd.AddCommand(show, sw)
	root.AddCommand(cmd)
}

func runModeShow(ctx context.Context, w io.Writer, flags *GlobalFlags) error {
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
		return printJSON(w, map[string]string{"mode": st.Project.Mode.String()})
	}

	s := a.styles
	_, _ = fmt.Fprintf(w, "Active mode: %s\n", s.info.Render(st.Project.Mode.String()))
	others := make([]string, 0, 3)
	for _, m := range a.catalog.Modes() {
		if m != st.Project.Mode {
			others = append(others, m.String())
		}
	}
	_, _ = fmt.Fprintln(w, s.dim.Render("Other modes: "+strings.Join(others, ", ")))
	return nil
}

func runModeSwitch(ctx context.Context, w io.Writer, flags *GlobalFlags, target string, preserve, force bool) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, err := a.store.Load(ctx)
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	to := constants.FlowMode(target)
	s := a.styles

	if preserve {
		previews, err := a.migrator.Plan(st, to)
		if err != nil {
			if flags.Output == OutputJSON {
				return printJSONError(w, err)
			}
			return err
		}
		if flags.Output != OutputJSON {
			_, _ = fmt.Fprintln(w, s.header.Render(fmt.Sprintf("Migration %s → %s", st.Project.Mode, to)))
			for _, p := range previews {
				from := "fresh start"
				if len(p.Sources) > 0 {
					from = "from " + strings.Join(p.Sources, ", ")
				}
				_, _ = fmt.Fprintf(w, "  %-22s %-12s %3d%%  %s\n", p.TargetStage, p.Status, p.Progress, s.dim.Render(from))
			}
			_, _ = fmt.Fprintln(w)
		}
	}

	ok, err := confirm(force,
		fmt.Sprintf("Switch to %s mode?", to),
		"The state file is rewritten for the new mode.")
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
		_, _ = fmt.Fprintln(w, s.dim.Render("Mode switch canceled."))
		return aceerrors.ErrOperationCanceled
	}

	// The migration re-reads the document under the store's lock, so a
	// writer slipping in during the confirmation prompt cannot be lost.
	migrated, err := a.store.Update(ctx, func(cur *domain.ProjectState) error {
		next, err := a.migrator.Migrate(cur, to, preserve)
		if err != nil {
			return err
		}
		*cur = *next
		return nil
	})
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	if flags.Output == OutputJSON {
		return printJSON(w, migrated)
	}

	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Switched to %s mode", to)))
	_, _ = fmt.Fprintf(w, "Current stage: %s\n", s.info.Render(migrated.Flow.CurrentStage))
	_, _ = fmt.Fprintf(w, "Overall %s\n", progressBar(migrated.Flow.ProgressPercentage, 30))
	return nil
}
