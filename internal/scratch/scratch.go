// Package scratch provides private, per-call temporary workspaces for plaintext key
// material handed to external tools. A workspace is a fresh directory readable only by
// the current user; Close overwrites every file with zeros before removing the tree.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Prefix is prepended to every workspace directory name so orphans can be swept.
const Prefix = "esign-"

// ErrInvalidName is returned for file names that would escape the workspace.
var ErrInvalidName = errors.New("invalid scratch file name")

// Workspace is a private temporary directory. It is safe for use by one operation at a time.
type Workspace struct {
	dir      string
	once     sync.Once
	closeErr error
}

// New creates a workspace under root (os.TempDir when empty). The directory name carries a
// random suffix so concurrent calls never collide.
func New(root, label string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}

	dir, err := os.MkdirTemp(root, Prefix+sanitizeLabel(label)+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch workspace: %w", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to restrict scratch workspace: %w", err)
	}

	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the absolute path of name inside the workspace.
func (w *Workspace) Path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(w.dir, name), nil
}

// WriteFile writes data to name with owner-only permissions and returns its path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path, err := w.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write scratch file %s: %w", name, err)
	}
	return path, nil
}

// ReadFile reads name from the workspace.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	path, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path) //nolint:gosec
}

// Close wipes and removes the workspace. It is idempotent.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		w.closeErr = wipeAndRemove(w.dir)
	})
	return w.closeErr
}

// Sweep removes workspaces under root older than maxAge. It returns the number removed.
// Workspaces are normally removed by Close; Sweep collects what a crashed process left behind.
func Sweep(root string, maxAge time.Duration, now time.Time) (int, error) {
	if root == "" {
		root = os.TempDir()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list scratch root: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := wipeAndRemove(filepath.Join(root, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

func wipeAndRemove(dir string) error {
	var errs []error
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := overwrite(path); err != nil {
			errs = append(errs, err)
		}
		return nil
	})

	if err := os.RemoveAll(dir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove scratch workspace: %w", err))
	}
	return errors.Join(errs...)
}

func overwrite(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0) //nolint:gosec
	if err != nil {
		return nil
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil
	}

	zeros := make([]byte, 4096)
	for remaining := info.Size(); remaining > 0; {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			return fmt.Errorf("failed to wipe %s: %w", filepath.Base(path), err)
		}
		remaining -= n
	}
	return f.Sync()
}

func sanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "op"
	}
	return b.String()
}
