// Package ingest turns command-line patterns into the ordered list of files
// a run processes.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/joseph-ayodele/onoma/internal/common"
)

// Stats summarizes a collection.
type Stats struct {
	Patterns   int
	Scanned    int // paths looked at (glob hits and walked entries)
	Matched    int // regular files kept
	Duplicates int
	Hidden     int
}

type Options struct {
	// SkipHidden drops dot-files and does not descend into dot-directories
	// when walking a directory argument. Explicitly named files are kept.
	SkipHidden bool
}

type Collector struct {
	opts   Options
	logger *slog.Logger
}

func NewCollector(opts Options, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{opts: opts, logger: logger}
}

// Collect expands each pattern in order. A pattern may be a file, a
// directory (walked recursively) or a glob, including "**". Matches of one
// pattern are sorted; files already collected are not repeated. Nothing
// matching at all is ErrNoInput.
func (c *Collector) Collect(patterns []string) ([]string, Stats, error) {
	stats := Stats{Patterns: len(patterns)}
	seen := make(map[string]struct{})
	var files []string

	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		matches, err := c.expand(p, &stats)
		if err != nil {
			return nil, stats, fmt.Errorf("%w: pattern %q: %v", common.ErrInvalidInput, p, err)
		}
		if len(matches) == 0 {
			c.logger.Warn("ingest.no_match", "pattern", p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			key := m
			if abs, err := filepath.Abs(m); err == nil {
				key = abs
			}
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				continue
			}
			seen[key] = struct{}{}
			files = append(files, m)
		}
	}
	stats.Matched = len(files)

	c.logger.Info("ingest.collected",
		"patterns", stats.Patterns,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"duplicates", stats.Duplicates,
		"hidden", stats.Hidden,
	)
	if len(files) == 0 {
		return nil, stats, fmt.Errorf("%w: no files match %s", common.ErrNoInput, strings.Join(patterns, " "))
	}
	return files, stats, nil
}

func (c *Collector) expand(pattern string, stats *Stats) ([]string, error) {
	if st, err := os.Stat(pattern); err == nil {
		stats.Scanned++
		if st.IsDir() {
			return c.walk(pattern, stats)
		}
		if st.Mode().IsRegular() {
			return []string{pattern}, nil
		}
		return nil, nil
	}

	hits, err := doublestar.Glob(pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		stats.Scanned++
		if c.opts.SkipHidden && hiddenBelow(pattern, h) {
			stats.Hidden++
			continue
		}
		st, err := os.Stat(h)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// walk collects regular files under root.
func (c *Collector) walk(root string, stats *Stats) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			c.logger.Warn("ingest.walk_error", "path", path, "error", walkErr)
			return nil
		}
		if path == root {
			return nil
		}
		stats.Scanned++
		if c.opts.SkipHidden && IsHidden(path) {
			stats.Hidden++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("walk: %w", err)
	}
	return out, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// hiddenBelow reports whether a glob hit has a hidden path element that the
// pattern did not name literally.
func hiddenBelow(pattern, hit string) bool {
	literal := make(map[string]struct{})
	for _, part := range strings.Split(filepath.ToSlash(pattern), "/") {
		literal[part] = struct{}{}
	}
	for _, part := range strings.Split(filepath.ToSlash(hit), "/") {
		if _, ok := literal[part]; ok {
			continue
		}
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// Fingerprint returns the hex sha256 of a file's contents.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hash %s: %w", common.ErrIO, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
