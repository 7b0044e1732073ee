package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/onoma/constants"
	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/extract"
	"github.com/joseph-ayodele/onoma/internal/history"
	"github.com/joseph-ayodele/onoma/internal/llm"
	"github.com/joseph-ayodele/onoma/internal/llm/mock"
	"github.com/joseph-ayodele/onoma/internal/naming"
	"github.com/joseph-ayodele/onoma/internal/rename"
	"github.com/joseph-ayodele/onoma/internal/scratch"
	"github.com/joseph-ayodele/onoma/internal/suggest"
)

type harness struct {
	dir     string
	out     *bytes.Buffer
	gen     *mock.Generator
	scratch *scratch.Manager
	runner  *Runner
}

func newHarness(t *testing.T, opts Options, journal Journal, preserve bool) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir(), out: &bytes.Buffer{}, gen: mock.New(nil)}
	h.scratch = scratch.NewManager(scratch.Options{BaseDir: t.TempDir(), Preserve: preserve}, nil)

	g := naming.GrammarFor(constants.SnakeCase, 3, 10)
	ex := extract.NewExtractor(extract.Config{}, h.scratch, nil)
	agg := suggest.New(h.gen, g, suggest.Config{Prompts: llm.Prompts{}}, nil)
	proc := NewProcessor(ex, h.scratch, agg, rename.NewRenamer(opts.DryRun, nil), 256, nil)

	opts.Out = h.out
	if opts.Convention == "" {
		opts.Convention = string(constants.SnakeCase)
	}
	h.runner = NewRunner(proc, journal, opts, nil)
	return h
}

func (h *harness) write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestNoteRenamedWithMock(t *testing.T) {
	h := newHarness(t, Options{Provider: "mock"}, nil, false)
	note := h.write(t, "note.txt", "hello")

	rep, err := h.runner.Run(context.Background(), []string{note})
	require.NoError(t, err)

	require.Len(t, rep.Results, 1)
	res := rep.Results[0]
	assert.Equal(t, constants.StatusRenamed, res.Status)
	assert.Equal(t, "mock_file_one.txt", res.Outcome.FinalName)
	assert.Equal(t, []string{"mock_file_one", "mock_file_two", "mock_file_three"}, res.Suggestions)

	b, err := os.ReadFile(filepath.Join(h.dir, "mock_file_one.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.NoFileExists(t, note)
	assert.Contains(t, h.out.String(), "Renamed 'note.txt' to 'mock_file_one.txt'")
	assert.Equal(t, RunStats{Files: 1, Renamed: 1}, rep.Stats)
	assert.NotEmpty(t, rep.Entries[0].ContentHash)
}

func TestConflictWithinRun(t *testing.T) {
	h := newHarness(t, Options{}, nil, false)
	a := h.write(t, "a.txt", "first")
	b := h.write(t, "b.txt", "second")

	rep, err := h.runner.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, "mock_file_one.txt", rep.Results[0].Outcome.FinalName)
	assert.Equal(t, "mock_file_one_2.txt", rep.Results[1].Outcome.FinalName)
}

func TestDryRunThenApplyPlan(t *testing.T) {
	h := newHarness(t, Options{DryRun: true}, nil, false)
	a := h.write(t, "a.txt", "first")
	b := h.write(t, "b.md", "second")

	rep, err := h.runner.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Stats.Planned)
	assert.True(t, rep.Run.DryRun)
	assert.FileExists(t, a)
	assert.FileExists(t, b)
	assert.Contains(t, h.out.String(), a+" --> mock_file_one.txt")

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, WritePlan(planPath, PlanFromReport(rep)))
	plan, err := ReadPlan(planPath)
	require.NoError(t, err)
	require.Len(t, plan.Items, 2)
	assert.Equal(t, "mock_file_one.md", plan.Items[1].Target)

	store, err := history.Open(context.Background(), history.Config{DSN: filepath.Join(t.TempDir(), "h.db")}, nil)
	require.NoError(t, err)
	defer store.Close()

	applier := NewRunner(NewProcessor(nil, nil, nil, rename.NewRenamer(false, nil), 0, nil), store, Options{Out: &bytes.Buffer{}}, nil)
	applied, err := applier.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 2, applied.Stats.Renamed)
	assert.FileExists(t, filepath.Join(h.dir, "mock_file_one.txt"))
	assert.FileExists(t, filepath.Join(h.dir, "mock_file_one.md"))

	entries, err := store.Entries(context.Background(), applied.Run.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	undone, err := history.Undo(context.Background(), store, applied.Run.ID, nil)
	require.NoError(t, err)
	assert.Len(t, undone.Reverted, 2)
	assert.FileExists(t, a)
	assert.FileExists(t, b)
}

func TestReadPlanRejectsPaths(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(p, []byte("items:\n  - source: /a/b.txt\n    target: ../c.txt\n"), 0o644))
	_, err := ReadPlan(p)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestFailureDoesNotStopRun(t *testing.T) {
	h := newHarness(t, Options{}, nil, false)
	good := h.write(t, "good.txt", "fine")
	missing := filepath.Join(h.dir, "missing.txt")

	rep, err := h.runner.Run(context.Background(), []string{missing, good})
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, rep.Results[0].Status)
	assert.ErrorIs(t, rep.Results[0].Err, common.ErrIO)
	assert.Equal(t, constants.StatusRenamed, rep.Results[1].Status)
	assert.Equal(t, RunStats{Files: 2, Renamed: 1, Failed: 1}, rep.Stats)
	assert.Contains(t, h.out.String(), "Error processing '"+missing+"'")
}

func TestCancelledBeforeFirstFile(t *testing.T) {
	h := newHarness(t, Options{}, nil, false)
	note := h.write(t, "note.txt", "hello")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := h.runner.Run(ctx, []string{note})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, rep.Interrupted)
	assert.Empty(t, rep.Results)
	assert.FileExists(t, note)
}

type cancelAfterFirst struct {
	Suggester
	cancel context.CancelFunc
}

func (c cancelAfterFirst) Suggest(ctx context.Context, res extract.Result) (naming.SuggestionSet, error) {
	defer c.cancel()
	return c.Suggester.Suggest(ctx, res)
}

func TestCancelledBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	g := naming.GrammarFor(constants.SnakeCase, 3, 10)
	sg := cancelAfterFirst{Suggester: suggest.New(mock.New(nil), g, suggest.Config{}, nil), cancel: cancel}
	proc := NewProcessor(extract.NewExtractor(extract.Config{}, nil, nil), nil, sg, rename.NewRenamer(false, nil), 0, nil)

	rep, err := NewRunner(proc, nil, Options{Out: &bytes.Buffer{}}, nil).Run(ctx, []string{a, b})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, constants.StatusRenamed, rep.Results[0].Status)
	assert.FileExists(t, b)
}

func TestInteractive(t *testing.T) {
	for _, tt := range []struct {
		answer string
		status constants.RenameStatus
	}{
		{"y\n", constants.StatusRenamed},
		{"n\n", constants.StatusSkipped},
		{"", constants.StatusSkipped},
	} {
		t.Run(strings.TrimSpace(tt.answer), func(t *testing.T) {
			h := newHarness(t, Options{DryRun: true, Interactive: true}, nil, false)
			h.runner.opts.In = strings.NewReader(tt.answer)
			note := h.write(t, "note.txt", "hello")

			rep, err := h.runner.Run(context.Background(), []string{note})
			require.NoError(t, err)
			assert.Equal(t, tt.status, rep.Results[0].Status)
			assert.Contains(t, h.out.String(), "Apply 1 rename(s)? [y/N]")
			if tt.status == constants.StatusRenamed {
				assert.FileExists(t, filepath.Join(h.dir, "mock_file_one.txt"))
				assert.False(t, rep.Run.DryRun)
			} else {
				assert.FileExists(t, note)
				assert.True(t, rep.Run.DryRun)
			}
		})
	}
}

func TestJournalRecordsRun(t *testing.T) {
	store, err := history.Open(context.Background(), history.Config{DSN: filepath.Join(t.TempDir(), "h.db")}, nil)
	require.NoError(t, err)
	defer store.Close()

	h := newHarness(t, Options{Provider: "mock"}, store, false)
	note := h.write(t, "note.txt", "hello")
	rep, err := h.runner.Run(context.Background(), []string{note, filepath.Join(h.dir, "nope.txt")})
	require.NoError(t, err)

	runs, err := store.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.Run.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Files)
	assert.Equal(t, 1, runs[0].Renamed)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, "mock", runs[0].Provider)
}

type scratchExtractor struct {
	sm   *scratch.Manager
	dirs []string
}

func (s *scratchExtractor) Extract(_ context.Context, path string) (extract.Result, error) {
	area, err := s.sm.New("test")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(area.Path("converted.txt"), []byte("x"), 0o644); err != nil {
		return nil, err
	}
	s.dirs = append(s.dirs, area.Dir())
	return extract.TextWithScratch{Markdown: "converted " + filepath.Base(path), Scratch: area}, nil
}

func TestScratchLifecycle(t *testing.T) {
	for _, preserve := range []bool{false, true} {
		var reported []string
		sm := scratch.NewManager(scratch.Options{BaseDir: t.TempDir(), Preserve: preserve, Report: func(p string) {
			reported = append(reported, p)
		}}, nil)
		ex := &scratchExtractor{sm: sm}
		g := naming.GrammarFor(constants.SnakeCase, 3, 10)
		proc := NewProcessor(ex, sm, suggest.New(mock.New(nil), g, suggest.Config{}, nil), rename.NewRenamer(false, nil), 0, nil)

		p := filepath.Join(t.TempDir(), "doc.bin")
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		res := proc.ProcessFile(context.Background(), p)
		require.NoError(t, res.Err)
		require.Len(t, ex.dirs, 1)

		if preserve {
			assert.DirExists(t, ex.dirs[0])
			assert.FileExists(t, filepath.Join(ex.dirs[0], "converted.txt"))
			assert.Equal(t, []string{ex.dirs[0], filepath.Join(ex.dirs[0], "converted.txt")}, reported)
		} else {
			assert.NoDirExists(t, ex.dirs[0])
			assert.Empty(t, reported)
		}
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) (extract.Result, error) {
	return nil, errors.New("unreadable")
}

func TestExtractionFailureSkipsSuggest(t *testing.T) {
	gen := mock.New(nil)
	g := naming.GrammarFor(constants.SnakeCase, 3, 10)
	proc := NewProcessor(failingExtractor{}, nil, suggest.New(gen, g, suggest.Config{}, nil), rename.NewRenamer(false, nil), 0, nil)
	res := proc.ProcessFile(context.Background(), "/x/y.pdf")
	assert.Equal(t, constants.StatusFailed, res.Status)
	assert.Error(t, res.Err)
	assert.Zero(t, gen.Calls())
}

func TestSVGGetsRenderedArtifact(t *testing.T) {
	h := newHarness(t, Options{}, nil, false)
	svg := h.write(t, "drawing.svg", `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50" width="100" height="50">
<title>Floor Plan</title><rect x="5" y="5" width="20" height="20" fill="red"/></svg>`)

	rep, err := h.runner.Run(context.Background(), []string{svg})
	require.NoError(t, err)
	assert.Equal(t, "mock_file_one.svg", rep.Results[0].Outcome.FinalName)
	// one artifact query plus the synthesis query
	assert.Equal(t, 2, h.gen.Calls())
}
