package rename

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
)

// Outcome describes where a file ended up (or would end up in dry-run).
type Outcome struct {
	OriginalPath string
	FinalPath    string
	FinalName    string
	Changed      bool // false when the target equals the current name
	DryRun       bool
}

type Renamer struct {
	dryRun bool
	claims *Claims
	logger *slog.Logger
}

// NewRenamer returns a Renamer. With dryRun set, Apply resolves names but
// never moves anything.
func NewRenamer(dryRun bool, logger *slog.Logger) *Renamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renamer{dryRun: dryRun, claims: NewClaims(), logger: logger}
}

func (r *Renamer) DryRun() bool { return r.dryRun }

// TargetName builds the file name for desiredBase on a file with extension
// ext (as returned by filepath.Ext). A trailing segment of desiredBase is
// dropped only when it is a recognised extension, so dot.notation names
// survive intact.
func TargetName(desiredBase, ext string) string {
	base := strings.TrimSpace(desiredBase)
	if e := filepath.Ext(base); e != "" && e != base && constants.IsKnownExt(e) {
		base = strings.TrimSuffix(base, e)
	}
	return base + ext
}

// Apply renames originalPath to desiredBase plus the original extension,
// resolving conflicts against a fresh listing of the directory.
func (r *Renamer) Apply(originalPath, desiredBase string) (Outcome, error) {
	if err := checkBase(desiredBase); err != nil {
		return Outcome{OriginalPath: originalPath}, err
	}

	dir := filepath.Dir(originalPath)
	current := filepath.Base(originalPath)
	target := TargetName(desiredBase, filepath.Ext(originalPath))

	out := Outcome{OriginalPath: originalPath, DryRun: r.dryRun}
	if target == current {
		out.FinalName = current
		out.FinalPath = originalPath
		r.logger.Debug("rename.unchanged", "path", originalPath)
		return out, nil
	}

	listing, err := listDir(dir, current)
	if err != nil {
		return out, fmt.Errorf("%w: list %s: %w", common.ErrRename, dir, err)
	}

	var final string
	if r.dryRun {
		final = r.claims.resolveIn(dir, originalPath, target, listing)
	} else {
		final = Resolve(target, listing)
	}
	out.FinalName = final
	out.FinalPath = filepath.Join(dir, final)
	out.Changed = final != current
	if !out.Changed {
		return out, nil
	}

	if r.dryRun {
		r.logger.Info("rename.planned", "from", originalPath, "to", out.FinalPath)
		return out, nil
	}
	if err := os.Rename(originalPath, out.FinalPath); err != nil {
		r.logger.Error("rename.failed", "from", originalPath, "to", out.FinalPath, "error", err)
		return out, fmt.Errorf("%w: %w", common.ErrRename, err)
	}
	r.logger.Info("rename.ok", "from", originalPath, "to", out.FinalPath)
	return out, nil
}

// Move renames from to the exact path to, refusing to overwrite. Used when
// replaying a plan or undoing a run.
func Move(from, to string) error {
	if _, err := os.Lstat(to); err == nil {
		return fmt.Errorf("%w: %s already exists", common.ErrRename, to)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", common.ErrRename, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("%w: %w", common.ErrRename, err)
	}
	return nil
}

func checkBase(base string) error {
	b := strings.TrimSpace(base)
	switch {
	case b == "", b == ".", b == "..":
		return fmt.Errorf("%w: invalid name %q", common.ErrRename, base)
	case strings.ContainsAny(b, `/\`), strings.ContainsRune(b, 0):
		return fmt.Errorf("%w: name %q contains a path separator", common.ErrRename, base)
	}
	return nil
}

// listDir returns the entry names in dir other than self.
func listDir(dir, self string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name() != self {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
