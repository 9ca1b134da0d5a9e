// Package cli provides the command-line interface for aceflow.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// styles contains styling for CLI output.
// Using a struct avoids global variables while keeping styles reusable.
type styles struct {
	header  lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	info    lipgloss.Style
	dim     lipgloss.Style
}

// newStyles creates the styles for command output.
func newStyles() *styles {
	return &styles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D7FF")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF87")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true),
		info: lipgloss.NewStyle().Foreground(lipgloss.Color("#00D7FF")),
		dim:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// statusIcon returns the display glyph for a stage status.
func statusIcon(status constants.StageStatus) string {
	switch status {
	case constants.StageStatusCompleted:
		return "✓"
	case constants.StageStatusInProgress:
		return "▶"
	case constants.StageStatusBlocked:
		return "✗"
	case constants.StageStatusSkipped:
		return "↷"
	default:
		return "○"
	}
}

// renderStatusIcon returns the styled glyph for a stage status.
func (s *styles) renderStatusIcon(status constants.StageStatus) string {
	icon := statusIcon(status)
	switch status {
	case constants.StageStatusCompleted:
		return s.success.Render(icon)
	case constants.StageStatusInProgress:
		return s.info.Render(icon)
	case constants.StageStatusBlocked:
		return s.err.Render(icon)
	default:
		return s.dim.Render(icon)
	}
}

// progressBar renders a fixed-width text progress bar.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := width * percent / 100
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", width-filled),
		percent)
}

// printJSON writes v as indented JSON. On marshal failure the error is
// printed as JSON and ErrJSONErrorOutput is returned so the command exits
// non-zero without a duplicate message.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return printJSONError(w, err)
	}
	_, _ = fmt.Fprintln(w, string(data))
	return nil
}

// jsonError is the JSON error envelope.
type jsonError struct {
	Error string `json:"error"`
}

// printJSONError writes err as a JSON envelope and returns
// ErrJSONErrorOutput so callers exit non-zero while cobra stays silent.
func printJSONError(w io.Writer, err error) error {
	data, marshalErr := json.MarshalIndent(jsonError{Error: err.Error()}, "", "  ")
	if marshalErr != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`+"\n", err.Error())
		return aceerrors.ErrJSONErrorOutput
	}
	_, _ = fmt.Fprintln(w, string(data))
	return aceerrors.ErrJSONErrorOutput
}

// renderWarnings prints deliverable warnings in text mode.
func renderWarnings(w io.Writer, s *styles, warnings []string) {
	for _, warning := range warnings {
		_, _ = fmt.Fprintln(w, s.warn.Render("⚠ "+warning))
	}
}

// stageLine renders one stage row for status and list output.
func stageLine(s *styles, def domain.StageDefinition, rt *domain.StageRuntimeState, current bool) string {
	marker := "  "
	if current {
		marker = s.info.Render("→ ")
	}
	name := fmt.Sprintf("%-20s", def.ID)
	line := fmt.Sprintf("%s%s %s %s", marker, s.renderStatusIcon(rt.Status), name, progressBar(rt.Progress, 20))
	if def.DisplayName != "" {
		line += "  " + s.dim.Render(def.DisplayName)
	}
	return line
}
