package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aceflow-ai/aceflow/internal/constants"
)

// OutputChecker decides whether a stage's required output artifact exists.
// The engine consults it before marking a stage completed.
type OutputChecker interface {
	// OutputReady reports whether the named artifact has been produced.
	// An empty filename always reports ready.
	OutputReady(filename string) (bool, error)
}

// FSOutputChecker implements OutputChecker against the project's result tree.
// An artifact is ready when a non-empty file with the given name exists in any
// iteration directory under <root>/aceflow_result/iterations/, or directly
// under <root>/aceflow_result/.
type FSOutputChecker struct {
	root       string
	resultsDir string
}

// NewFSOutputChecker creates a checker scanning the result tree of the
// project rooted at root. An empty resultsDir uses the default.
func NewFSOutputChecker(root, resultsDir string) *FSOutputChecker {
	if resultsDir == "" {
		resultsDir = constants.ResultsDir
	}
	return &FSOutputChecker{root: root, resultsDir: resultsDir}
}

// OutputReady reports whether the named artifact has been produced.
func (c *FSOutputChecker) OutputReady(filename string) (bool, error) {
	if filename == "" {
		return true, nil
	}

	resultsDir := filepath.Join(c.root, c.resultsDir)

	if ready, err := nonEmptyFile(filepath.Join(resultsDir, filename)); err != nil {
		return false, err
	} else if ready {
		return true, nil
	}

	iterationsDir := filepath.Join(resultsDir, constants.IterationsDir)
	entries, err := os.ReadDir(iterationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to scan iterations: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ready, err := nonEmptyFile(filepath.Join(iterationsDir, entry.Name(), filename))
		if err != nil {
			return false, err
		}
		if ready {
			return true, nil
		}
	}
	return false, nil
}

// nonEmptyFile reports whether path is a regular file with content.
func nonEmptyFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

// Ensure FSOutputChecker satisfies OutputChecker.
var _ OutputChecker = (*FSOutputChecker)(nil)
