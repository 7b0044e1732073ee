// Package scratch owns the temporary directories created while a file is
// processed. An Area is removed on Release unless its Manager preserves
// scratch output, in which case every path is reported once and left on disk.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/joseph-ayodele/onoma/internal/common"
)

// Options configures a Manager.
type Options struct {
	BaseDir  string            // parent for new areas; empty means os.TempDir()
	Preserve bool              // keep areas on Release and report their paths
	Report   func(path string) // called once per preserved path
}

type Manager struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	preserved []string
	seen      map[string]struct{}
}

func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{opts: opts, logger: logger, seen: map[string]struct{}{}}
}

// Preserve reports whether released areas are kept on disk.
func (m *Manager) Preserve() bool { return m.opts.Preserve }

// New creates a fresh area. prefix becomes part of the directory name.
func (m *Manager) New(prefix string) (*Area, error) {
	if m.opts.BaseDir != "" {
		if err := os.MkdirAll(m.opts.BaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create scratch base: %v", common.ErrIO, err)
		}
	}
	dir, err := os.MkdirTemp(m.opts.BaseDir, "onoma_"+prefix+"_*")
	if err != nil {
		return nil, fmt.Errorf("%w: create scratch area: %v", common.ErrIO, err)
	}
	m.logger.Debug("scratch.create", "dir", dir)
	return &Area{dir: dir, m: m}, nil
}

// Preserved returns every path reported so far, in report order.
func (m *Manager) Preserved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.preserved))
	copy(out, m.preserved)
	return out
}

func (m *Manager) report(paths []string) {
	m.mu.Lock()
	var fresh []string
	for _, p := range paths {
		if _, ok := m.seen[p]; ok {
			continue
		}
		m.seen[p] = struct{}{}
		m.preserved = append(m.preserved, p)
		fresh = append(fresh, p)
	}
	m.mu.Unlock()

	for _, p := range fresh {
		m.logger.Info("scratch.preserved", "path", p)
		if m.opts.Report != nil {
			m.opts.Report(p)
		}
	}
}

// Area is one scratch directory owned by a single source file.
type Area struct {
	dir string
	m   *Manager

	mu       sync.Mutex
	released bool
}

func (a *Area) Dir() string { return a.dir }

// Path joins name onto the area directory.
func (a *Area) Path(name string) string { return filepath.Join(a.dir, name) }

// Release removes the area, or reports its contents when preserving.
// Calling it more than once, or on a nil Area, is a no-op.
func (a *Area) Release() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true

	if a.m.opts.Preserve {
		a.m.report(a.contents())
		return nil
	}
	if err := os.RemoveAll(a.dir); err != nil {
		a.m.logger.Warn("scratch.remove_failed", "dir", a.dir, "error", err)
		return fmt.Errorf("%w: remove scratch %s: %v", common.ErrIO, a.dir, err)
	}
	a.m.logger.Debug("scratch.removed", "dir", a.dir)
	return nil
}

// contents lists the directory itself followed by every entry below it.
func (a *Area) contents() []string {
	paths := []string{a.dir}
	var files []string
	err := filepath.WalkDir(a.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != a.dir {
			files = append(files, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.m.logger.Warn("scratch.walk_failed", "dir", a.dir, "error", err)
	}
	sort.Strings(files)
	return append(paths, files...)
}

// Lease hands out at most one Area, created on first use.
type Lease struct {
	m      *Manager
	prefix string
	area   *Area
}

func (m *Manager) Lease(prefix string) *Lease {
	return &Lease{m: m, prefix: prefix}
}

// Get returns the leased area, creating it on the first call.
func (l *Lease) Get() (*Area, error) {
	if l.area != nil {
		return l.area, nil
	}
	a, err := l.m.New(l.prefix)
	if err != nil {
		return nil, err
	}
	l.area = a
	return a, nil
}

// Area returns the leased area or nil if none was created.
func (l *Lease) Area() *Area { return l.area }

// Release releases the leased area if one exists.
func (l *Lease) Release() error { return l.area.Release() }
