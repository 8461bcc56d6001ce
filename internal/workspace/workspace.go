// Package workspace provides scoped temporary storage for the intermediate
// files of one pipeline run.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Manager creates uniquely named workspaces under a root directory.
type Manager struct {
	root string
}

// NewManager returns a Manager rooted at dir. An empty dir falls back to
// the system temp directory.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Manager{root: dir}
}

// Acquire creates a fresh, uniquely named workspace directory.
// The caller owns the workspace and must call Release on every exit path.
func (m *Manager) Acquire() (*Workspace, error) {
	dir := filepath.Join(m.root, "speechws-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Workspace is a scoped directory holding the intermediate files of a
// single recording. Release removes everything under it.
type Workspace struct {
	mu       sync.Mutex
	dir      string
	released bool
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Join returns the path of name inside the workspace.
func (w *Workspace) Join(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteFile writes data to name inside the workspace and returns its path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Join(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write workspace file %s: %w", name, err)
	}
	return path, nil
}

// Release deletes the workspace and every file created under it.
// Idempotent: releasing an already-released workspace is a no-op.
func (w *Workspace) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil
	}
	w.released = true
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("release workspace: %w", err)
	}
	return nil
}
