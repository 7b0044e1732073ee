package history

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/ingest"
	"github.com/joseph-ayodele/onoma/internal/rename"
)

// UndoResult lists what an undo did.
type UndoResult struct {
	Reverted []Entry
	Skipped  []SkippedEntry
}

type SkippedEntry struct {
	Entry  Entry
	Reason string
}

// Undo moves every file renamed by runID back to its original path, newest
// first. A file is left alone when it is gone, was modified since the run,
// or its original name has been taken.
func Undo(ctx context.Context, s *Store, runID string, logger *slog.Logger) (UndoResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := s.Entries(ctx, runID)
	if err != nil {
		return UndoResult{}, err
	}
	if len(entries) == 0 {
		return UndoResult{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var res UndoResult
	skip := func(e Entry, reason string) {
		logger.Warn("history.undo.skipped", "run_id", runID, "path", e.FinalPath, "reason", reason)
		res.Skipped = append(res.Skipped, SkippedEntry{Entry: e, Reason: reason})
	}

	for i := len(entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		e := entries[i]
		if e.Status != constants.StatusRenamed {
			continue
		}
		if _, err := os.Stat(e.FinalPath); err != nil {
			skip(e, "renamed file no longer exists")
			continue
		}
		if e.ContentHash != "" {
			sum, err := ingest.Fingerprint(e.FinalPath)
			if err != nil {
				skip(e, err.Error())
				continue
			}
			if sum != e.ContentHash {
				skip(e, "file changed since the rename")
				continue
			}
		}
		if err := rename.Move(e.FinalPath, e.OriginalPath); err != nil {
			skip(e, err.Error())
			continue
		}
		if err := s.MarkReverted(ctx, e.ID); err != nil {
			return res, err
		}
		logger.Info("history.undo.reverted", "run_id", runID, "from", e.FinalPath, "to", e.OriginalPath)
		res.Reverted = append(res.Reverted, e)
	}
	return res, nil
}
