package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
)

// Run is one invocation of the renamer.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Provider   string
	Convention string
	DryRun     bool
	Files      int
	Renamed    int
	Failed     int
}

// Entry is the outcome for one file of a run.
type Entry struct {
	ID           string
	RunID        string
	Seq          int
	OriginalPath string
	FinalPath    string
	Suggestions  []string
	Status       constants.RenameStatus
	Error        string
	ContentHash  string
	CreatedAt    time.Time
}

// ErrRunNotFound is returned when a run id matches nothing.
var ErrRunNotFound = errors.New("run not found")

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// BeginRun inserts a run. An empty ID is filled with a new uuid.
func (s *Store) BeginRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO runs (id, started_at, provider, convention, dry_run) VALUES (?, ?, ?, ?, ?)`),
		run.ID, toMillis(run.StartedAt), run.Provider, run.Convention, run.DryRun,
	)
	if err != nil {
		s.logger.Error("history.begin_run_failed", "run_id", run.ID, "error", err)
		return fmt.Errorf("%w: begin run: %w", common.ErrDatabase, err)
	}
	s.logger.Debug("history.run_started", "run_id", run.ID)
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE runs SET finished_at = ?, files = ?, renamed = ?, failed = ? WHERE id = ?`),
		toMillis(finished), run.Files, run.Renamed, run.Failed, run.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: finish run: %w", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %w: %s", common.ErrDatabase, ErrRunNotFound, run.ID)
	}
	return nil
}

// Record appends an entry to its run.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	sugg, err := json.Marshal(e.Suggestions)
	if err != nil {
		return fmt.Errorf("%w: encode suggestions: %w", common.ErrDatabase, err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO entries (id, run_id, seq, original_path, final_path, suggestions, status, error, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.RunID, e.Seq, e.OriginalPath, e.FinalPath, string(sugg), string(e.Status), e.Error, e.ContentHash, toMillis(e.CreatedAt),
	)
	if err != nil {
		s.logger.Error("history.record_failed", "run_id", e.RunID, "path", e.OriginalPath, "error", err)
		return fmt.Errorf("%w: record entry: %w", common.ErrDatabase, err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, started_at, finished_at, provider, convention, dry_run, files, renamed, failed
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", common.ErrDatabase, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Provider, &r.Convention, &r.DryRun, &r.Files, &r.Renamed, &r.Failed); err != nil {
			return nil, fmt.Errorf("%w: scan run: %w", common.ErrDatabase, err)
		}
		r.StartedAt = fromMillis(started)
		r.FinishedAt = fromMillis(finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %w", common.ErrDatabase, err)
	}
	return out, nil
}

// LastRunID returns the newest run that moved files.
func (s *Store) LastRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id FROM runs WHERE dry_run = ? ORDER BY started_at DESC, id DESC LIMIT 1`), false).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: last run: %w", common.ErrDatabase, err)
	}
	return id, nil
}

// Entries returns a run's entries in processing order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, run_id, seq, original_path, final_path, suggestions, status, error, content_hash, created_at
		 FROM entries WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", common.ErrDatabase, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			sugg    string
			status  string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.OriginalPath, &e.FinalPath, &sugg, &status, &e.Error, &e.ContentHash, &created); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %w", common.ErrDatabase, err)
		}
		if err := json.Unmarshal([]byte(sugg), &e.Suggestions); err != nil {
			s.logger.Warn("history.bad_suggestions", "entry_id", e.ID, "error", err)
		}
		e.Status = constants.RenameStatus(status)
		e.CreatedAt = fromMillis(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", common.ErrDatabase, err)
	}
	return out, nil
}

// MarkReverted flags an entry as undone.
func (s *Store) MarkReverted(ctx context.Context, entryID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE entries SET status = ? WHERE id = ?`),
		string(constants.StatusReverted), entryID)
	if err != nil {
		return fmt.Errorf("%w: mark reverted: %w", common.ErrDatabase, err)
	}
	return nil
}
