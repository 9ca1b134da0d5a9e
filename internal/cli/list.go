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
)

// AddListCommand adds the list command to the root command.
func AddListCommand(root *cobra.Command, flags *GlobalFlags) {
	var mode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flow modes and their stages",
		Long: `List the available flow modes, or the stage definitions of one mode.

Without --mode, all modes and their stage counts are shown. With --mode,
every stage of that mode is listed with its dependencies and required
output artifact.

Examples:
  aceflow list
  aceflow list --mode standard
  aceflow list --mode complete --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), flags, mode)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "show stages of one flow mode")

	root.AddCommand(cmd)
}

// modeListing is the JSON shape for one mode in list output.
type modeListing struct {
	Mode   string                   `json:"mode"`
	Stages []domain.StageDefinition `json:"stages"`
}

func runList(ctx context.Context, w io.Writer, flags *GlobalFlags, mode string) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	if mode != "" {
		return listMode(w, a, flags, constants.FlowMode(mode))
	}
	return listModes(w, a, flags)
}

func listMode(w io.Writer, a *app, flags *GlobalFlags, mode constants.FlowMode) error {
	stages, err := a.catalog.StagesForMode(mode)
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	if flags.Output == OutputJSON {
		return printJSON(w, modeListing{Mode: mode.String(), Stages: stages})
	}

	s := a.styles
	_, _ = fmt.Fprintln(w, s.header.Render(fmt.Sprintf("%s mode (%d stages)", mode, len(stages))))
	_, _ = fmt.Fprintln(w)
	for i, def := range stages {
		_, _ = fmt.Fprintf(w, "%d. %s %s\n", i+1, s.info.Render(def.ID), s.dim.Render(def.DisplayName))
		if def.Description != "" {
			_, _ = fmt.Fprintf(w, "   %s\n", def.Description)
		}
		if len(def.Dependencies) > 0 {
			_, _ = fmt.Fprintf(w, "   %s\n", s.dim.Render("depends on: "+strings.Join(def.Dependencies, ", ")))
		}
		if def.RequiredOutput != "" {
			_, _ = fmt.Fprintf(w, "   %s\n", s.dim.Render("required output: "+def.RequiredOutput))
		}
	}
	return nil
}

func listModes(w io.Writer, a *app, flags *GlobalFlags) error {
	modes := a.catalog.Modes()

	if flags.Output == OutputJSON {
		listings := make([]modeListing, 0, len(modes))
		for _, m := range modes {
			stages, err := a.catalog.StagesForMode(m)
			if err != nil {
				return printJSONError(w, err)
			}
			listings = append(listings, modeListing{Mode: m.String(), Stages: stages})
		}
		return printJSON(w, listings)
	}

	s := a.styles
	_, _ = fmt.Fprintln(w, s.header.Render("Flow modes"))
	_, _ = fmt.Fprintln(w)
	for _, m := range modes {
		stages, err := a.catalog.StagesForMode(m)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(stages))
		for _, def := range stages {
			ids = append(ids, def.ID)
		}
		_, _ = fmt.Fprintf(w, "%-10s %s\n", s.info.Render(m.String()), s.dim.Render(strings.Join(ids, " → ")))
	}
	return nil
}
