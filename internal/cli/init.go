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

// AddInitCommand adds the init command to the root command.
func AddInitCommand(root *cobra.Command, flags *GlobalFlags) {
	var mode string

	cmd := &cobra.Command{
		Use:   "init <project-name>",
		Short: "Initialize a new AceFlow project",
		Long: `Initialize a new AceFlow project in the current directory.

Creates .aceflow/current_state.json with the first stage of the chosen
flow mode already in progress.

Examples:
  aceflow init my-project
  aceflow init my-project --mode standard
  aceflow init my-project --mode complete --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), cmd.OutOrStdout(), flags, args[0], mode)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "flow mode (minimal|standard|complete|smart, default from config)")

	root.AddCommand(cmd)
}

func runInit(ctx context.Context, w io.Writer, flags *GlobalFlags, name, mode string) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	if mode == "" {
		mode = a.cfg.Project.DefaultMode
	}

	st, err := a.engine.InitProject(ctx, name, constants.FlowMode(mode))
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
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Project '%s' initialized in %s mode", name, mode)))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Current stage: %s\n", s.info.Render(st.Flow.CurrentStage))
	if st.Flow.NextStage != "" {
		_, _ = fmt.Fprintf(w, "Next stage:    %s\n", st.Flow.NextStage)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, s.dim.Render("Run 'aceflow status' to see all stages."))
	return nil
}
