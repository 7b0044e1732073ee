// Package export renders a run's renames as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/onoma/internal/history"
)

const (
	SheetRenames = "Renames"
	SheetRun     = "Run"
)

// RunSource loads a journaled run.
type RunSource interface {
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
	Entries(ctx context.Context, runID string) ([]history.Entry, error)
}

// Service exports journaled runs as XLSX bytes.
type Service struct {
	runs   RunSource
	logger *slog.Logger
}

func NewService(runs RunSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ExportRunXLSX returns the workbook for a journaled run.
func (s *Service) ExportRunXLSX(ctx context.Context, runID string) ([]byte, error) {
	runs, err := s.runs.ListRuns(ctx, 1000)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var run *history.Run
	for i := range runs {
		if runs[i].ID == runID {
			run = &runs[i]
			break
		}
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", history.ErrRunNotFound, runID)
	}
	entries, err := s.runs.Entries(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return RunXLSX(*run, entries, s.logger)
}

// RunXLSX builds the workbook from values already in memory.
func RunXLSX(run history.Run, entries []history.Entry, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for _, sheet := range []string{SheetRenames, SheetRun} {
		if index, _ := f.GetSheetIndex(sheet); index == -1 {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}
	}
	_ = f.DeleteSheet("Sheet1")
	activeIndex, _ := f.GetSheetIndex(SheetRenames)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"#",
		"Status",
		"Original Name",
		"New Name",
		"Suggestion 1",
		"Suggestion 2",
		"Suggestion 3",
		"Directory",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetRenames, cell, h)
	}

	row := 2
	for _, e := range entries {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetRenames, cell, v)
		}
		write(1, e.Seq)
		write(2, string(e.Status))
		write(3, filepath.Base(e.OriginalPath))
		write(4, filepath.Base(e.FinalPath))
		for i := 0; i < 3; i++ {
			if i < len(e.Suggestions) {
				write(5+i, e.Suggestions[i])
			}
		}
		write(8, filepath.Dir(e.OriginalPath))
		write(9, truncate(e.Error, 240))
		row++
	}

	_ = f.SetColWidth(SheetRenames, "A", "A", 6)
	_ = f.SetColWidth(SheetRenames, "B", "B", 12)
	_ = f.SetColWidth(SheetRenames, "C", "G", 32)
	_ = f.SetColWidth(SheetRenames, "H", "H", 48)
	_ = f.SetColWidth(SheetRenames, "I", "I", 60)

	summary := [][2]any{
		{"Run ID", run.ID},
		{"Started", formatTime(run.StartedAt)},
		{"Finished", formatTime(run.FinishedAt)},
		{"Provider", run.Provider},
		{"Convention", run.Convention},
		{"Dry Run", run.DryRun},
		{"Files", run.Files},
		{"Renamed", run.Renamed},
		{"Failed", run.Failed},
	}
	for i, kv := range summary {
		a, _ := excelize.CoordinatesToCellName(1, i+1)
		b, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(SheetRun, a, kv[0])
		_ = f.SetCellValue(SheetRun, b, kv[1])
	}
	_ = f.SetColWidth(SheetRun, "A", "A", 14)
	_ = f.SetColWidth(SheetRun, "B", "B", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"run_id", run.ID,
		"rows", len(entries),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
