// Package cli provides the command-line interface for aceflow.
package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/charmbracelet/huh"

	"github.com/aceflow-ai/aceflow/internal/catalog"
	"github.com/aceflow-ai/aceflow/internal/clock"
	"github.com/aceflow-ai/aceflow/internal/config"
	"github.com/aceflow-ai/aceflow/internal/engine"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
	"github.com/aceflow-ai/aceflow/internal/migrate"
	"github.com/aceflow-ai/aceflow/internal/navigator"
	"github.com/aceflow-ai/aceflow/internal/state"
)

// app bundles the wired components every command needs: resolved config,
// stage catalog, state store, engine, migrator, and navigator for one
// project root.
type app struct {
	root     string
	cfg      *config.Config
	catalog  *catalog.Catalog
	store    *state.FileStore
	engine   *engine.Engine
	migrator *migrate.Migrator
	nav      *navigator.Navigator
	styles   *styles
}

// newApp wires the components for the project selected by the global flags.
func newApp(flags *GlobalFlags) (*app, error) {
	root := flags.Directory
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
	}

	logger := Logger()

	cfg, err := config.Load(root)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}

	cat, err := catalog.Load(config.CatalogPath(root))
	if err != nil {
		return nil, err
	}

	store, err := state.NewFileStore(root)
	if err != nil {
		return nil, err
	}
	store.SetLockTimeout(cfg.Storage.LockTimeout)

	checker := engine.NewFSOutputChecker(root, cfg.Storage.ResultsDir)
	clk := clock.RealClock{}

	eng := engine.New(store, cat, checker, clk, logger, engine.Options{
		RequireOutputs:     cfg.Gates.RequireOutputs,
		SkipDependencyGate: cfg.Gates.SkipDependencies,
	})

	return &app{
		root:     root,
		cfg:      cfg,
		catalog:  cat,
		store:    store,
		engine:   eng,
		migrator: migrate.New(cat, clk, logger),
		nav:      navigator.New(cat),
		styles:   newStyles(),
	}, nil
}

// confirm asks the user for confirmation. With force set the prompt is
// skipped; in a non-interactive session without force the operation is
// rejected rather than hanging on a prompt that can never be answered.
func confirm(force bool, title, description string) (bool, error) {
	if force {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, aceerrors.ErrNonInteractiveMode
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		return false, err
	}
	if !confirmed {
		return false, nil
	}
	return true, nil
}
