// Package cli provides the command-line interface for aceflow.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/ctxutil"
	"github.com/aceflow-ai/aceflow/internal/errors"
)

// AddIssueCommand adds the issue command group to the root command.
func AddIssueCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Record and resolve flow issues",
		Long: `Record abnormalities encountered during a stage and resolve them.

A high-severity issue blocks its stage until resolved.`,
	}

	var severity string
	record := &cobra.Command{
		Use:   "record <stage> <description>",
		Short: "Record an issue on a stage",
		Long: `Record an issue on a stage. High severity blocks the stage until the
issue is resolved.

Examples:
  aceflow issue record implementation "flaky integration tests"
  aceflow issue record testing "prod data needed" --severity high`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssueRecord(cmd.Context(), cmd.OutOrStdout(), flags, args[0], args[1], severity)
		},
	}
	record.Flags().StringVarP(&severity, "severity", "s", "medium", "issue severity (low|medium|high)")

	resolve := &cobra.Command{
		Use:   "resolve <issue-id>",
		Short: "Resolve an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssueResolve(cmd.Context(), cmd.OutOrStdout(), flags, args[0])
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all issues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIssueList(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.AddCommand(record, resolve, list)
	root.AddCommand(cmd)
}

func runIssueRecord(ctx context.Context, w io.Writer, flags *GlobalFlags, stageID, description, severity string) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	sev := constants.Severity(severity)
	switch sev {
	case constants.SeverityLow, constants.SeverityMedium, constants.SeverityHigh:
	default:
		return fmt.Errorf("%w: severity %q must be one of low, medium, high", errors.ErrEmptyValue, severity)
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, abn, err := a.engine.RecordAbnormality(ctx, stageID, description, sev)
	if err != nil {
		if flags.Output == OutputJSON {
			return printJSONError(w, err)
		}
		return err
	}

	if flags.Output == OutputJSON {
		return printJSON(w, abn)
	}

	s := a.styles
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Issue recorded: %s", abn.ID)))
	if rt := st.StageState(stageID); rt != nil && rt.Status == constants.StageStatusBlocked {
		_, _ = fmt.Fprintln(w, s.warn.Render(fmt.Sprintf("⚠ Stage '%s' is blocked until this issue is resolved", stageID)))
	}
	return nil
}

func runIssueResolve(ctx context.Context, w io.Writer, flags *GlobalFlags, id string) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}

	st, err := a.engine.ResolveAbnormality(ctx, id)
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
	_, _ = fmt.Fprintln(w, s.success.Render(fmt.Sprintf("✓ Issue %s resolved", id)))
	return nil
}

func runIssueList(ctx context.Context, w io.Writer, flags *GlobalFlags) error {
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
		return printJSON(w, st.Abnormalities)
	}

	s := a.styles
	if len(st.Abnormalities) == 0 {
		_, _ = fmt.Fprintln(w, s.dim.Render("No issues recorded."))
		return nil
	}

	for _, abn := range st.Abnormalities {
		mark := s.success.Render("✓")
		if abn.Status == constants.AbnormalityUnresolved {
			mark = s.warn.Render("○")
			if abn.Severity == constants.SeverityHigh {
				mark = s.err.Render("!")
			}
		}
		_, _ = fmt.Fprintf(w, "%s %s  %s [%s] %s\n", mark, abn.ID, s.info.Render(abn.StageID), abn.Severity, abn.Description)
	}
	return nil
}
