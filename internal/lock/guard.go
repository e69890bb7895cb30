// Package lock keeps two ticket2pr runs out of the same workspace.
//
// The guard is a PID file inside the repository's git directory, so it
// never appears as a working tree change. A file left behind by a crashed
// run is reclaimed once its process is gone.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/bengabay11/ticket2pr/internal/fsutil"
)

// PIDFileName is the guard file inside the git directory.
const PIDFileName = "ticket2pr.pid"

// BusyError reports the process holding the guard.
type BusyError struct {
	PID int
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("workspace already in use (pid %d)", e.PID)
}

// Guard is a PID file guarding one workspace.
type Guard struct {
	dir string
	// alive reports whether pid is a running process.
	alive func(pid int) bool
}

// NewGuard returns a guard keeping its PID file in dir.
func NewGuard(dir string) *Guard {
	return &Guard{dir: dir, alive: processExists}
}

func (g *Guard) path() string {
	return filepath.Join(g.dir, PIDFileName)
}

// Acquire takes the guard for the current process. It fails with a
// *BusyError when a live process holds it.
func (g *Guard) Acquire() error {
	if err := g.check(); err != nil {
		return err
	}
	pid := strconv.Itoa(os.Getpid())
	if err := fsutil.WriteFileAtomic(g.path(), []byte(pid), 0o644, 0o755); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (g *Guard) check() error {
	data, err := os.ReadFile(g.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid != os.Getpid() && g.alive(pid) {
		return &BusyError{PID: pid}
	}
	slog.Debug("reclaiming stale pid file", "path", g.path(), "content", strings.TrimSpace(string(data)))
	return nil
}

// Release removes the PID file if this process owns it.
func (g *Guard) Release() {
	data, err := os.ReadFile(g.path())
	if err != nil {
		return
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		return
	}
	_ = os.Remove(g.path())
}

// processExists sends signal 0, since FindProcess always succeeds on Unix.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
