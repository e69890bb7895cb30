// Package artifact handles the transient files agents hand to later phases.
//
// An artifact is read exactly once: Consume deletes it right after reading
// so it can never be staged or read twice.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names written by the planning agents.
const (
	PlanFile      = "PLAN.md"
	TestsPlanFile = "TESTS_PLAN.md"
)

// Path returns the artifact's location in workDir.
func Path(workDir, name string) string {
	return filepath.Join(workDir, name)
}

// Consume reads the artifact at path and removes it. found is false, with
// a nil error, when the file does not exist.
func Consume(path string) (content string, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := os.Remove(path); err != nil {
		return "", true, fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return string(data), true, nil
}

// Discard removes a stale artifact left by an earlier run, if any.
func Discard(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale %s: %w", filepath.Base(path), err)
	}
	return nil
}
