package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/onoma/internal/common"
	"github.com/joseph-ayodele/onoma/internal/llm/mock"
	"github.com/joseph-ayodele/onoma/internal/llm/openai"
)

type cli struct {
	dir    string
	config string
}

// newCLI isolates the command from the host environment and writes a
// config selecting the mock provider with history in the temp dir.
func newCLI(t *testing.T, historyEnabled bool) cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	for _, k := range []string{
		"ONOMA_PROVIDER", "ONOMA_MODEL", "OPENAI_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"ONOMA_NAMING_CONVENTION", "ONOMA_TEMP_DIR", "ONOMA_HISTORY_DSN",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
	} {
		t.Setenv(k, "")
	}

	cfg := fmt.Sprintf("default_provider = \"mock\"\n\n[history]\nenabled = %t\ndsn = %q\n",
		historyEnabled, filepath.Join(dir, "state", "history.db"))
	path := filepath.Join(dir, "onoma.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return cli{dir: dir, config: path}
}

func (c cli) run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config", c.config, "--log-format", "text"}, args...)
	code := run(full, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (c cli) write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(c.dir, "files", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"interrupted", context.Canceled, exitInterrupted},
		{"wrapped interrupt", fmt.Errorf("run: %w", context.Canceled), exitInterrupted},
		{"setup failure", common.ErrNoInput, 1},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", false).Info("onoma.start", "files", 2)
	assert.Contains(t, buf.String(), `"msg":"onoma.start"`)

	buf.Reset()
	newLogger(&buf, "TEXT", true).Debug("config.effective")
	assert.Contains(t, buf.String(), "msg=config.effective")

	buf.Reset()
	newLogger(&buf, "text", false).Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestNewGenerator(t *testing.T) {
	cfg := common.DefaultConfig()

	cfg.Provider = common.ProviderMock
	gen, err := newGenerator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &mock.Generator{}, gen)

	cfg.Provider = common.ProviderAzure
	cfg.Azure.APIKey = "k"
	cfg.Azure.Endpoint = "https://example.openai.azure.com"
	cfg.Azure.Deployment = "names"
	gen, err = newGenerator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, gen)
	assert.Equal(t, "azure:names", gen.Name())

	cfg.Provider = "bard"
	_, err = newGenerator(cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRun_RenamesWithMockProvider(t *testing.T) {
	c := newCLI(t, false)
	src := c.write(t, "note.txt", "quarterly budget review notes")

	code, out, _ := c.run(t, "", src)
	require.Equal(t, 0, code, out)

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(filepath.Dir(src), "mock_file_one.txt"))
	assert.Contains(t, out, "Processed 1 file(s): 1 renamed")
}

func TestRun_ConventionFlag(t *testing.T) {
	c := newCLI(t, false)
	src := c.write(t, "note.txt", "some text")

	code, out, _ := c.run(t, "", "--convention", "kebab-case", src)
	require.Equal(t, 0, code, out)
	assert.FileExists(t, filepath.Join(filepath.Dir(src), "mock-file-one.txt"))
}

func TestRun_DryRunPlanApplyUndo(t *testing.T) {
	c := newCLI(t, true)
	src := c.write(t, "draft.md", "# Heading\n\nbody")
	dir := filepath.Dir(src)
	planPath := filepath.Join(c.dir, "plan.yaml")
	report := filepath.Join(c.dir, "dry.xlsx")

	code, out, _ := c.run(t, "", "--dry-run", "--plan-out", planPath, "--report", report, src)
	require.Equal(t, 0, code, out)
	assert.FileExists(t, src, "dry-run must not touch the file")
	assert.Contains(t, out, "-->")
	assert.FileExists(t, planPath)
	assert.FileExists(t, report)

	code, out, _ = c.run(t, "", "apply", planPath)
	require.Equal(t, 0, code, out)
	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(dir, "mock_file_one.md"))

	code, out, _ = c.run(t, "", "history")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "dry-run")
	assert.Contains(t, out, "apply")

	code, out, _ = c.run(t, "", "undo")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "1 restored")
	assert.FileExists(t, src)
	assert.NoFileExists(t, filepath.Join(dir, "mock_file_one.md"))
}

func TestRun_Interactive(t *testing.T) {
	c := newCLI(t, false)
	src := c.write(t, "a.txt", "alpha")

	code, out, _ := c.run(t, "n\n", "--dry-run", "--interactive", src)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "No files renamed.")
	assert.FileExists(t, src)

	code, out, _ = c.run(t, "y\n", "--dry-run", "--interactive", src)
	require.Equal(t, 0, code, out)
	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(filepath.Dir(src), "mock_file_one.txt"))
}

func TestRun_SetupErrors(t *testing.T) {
	c := newCLI(t, false)
	src := c.write(t, "a.txt", "alpha")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"interactive without dry-run", []string{"--interactive", src}, "--interactive requires --dry-run"},
		{"unknown format", []string{"--format", "cad", src}, "unknown format"},
		{"no matches", []string{filepath.Join(c.dir, "missing", "*.txt")}, common.ErrNoInput.Error()},
		{"no arguments", nil, "requires at least 1 arg"},
		{"missing api key", []string{"--provider", "openai", src}, "api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := c.run(t, "", tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.wantErr)
			assert.FileExists(t, src)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	c := newCLI(t, false)
	out := filepath.Join(c.dir, "saved", "config.toml")

	code, stdout, _ := c.run(t, "", "save-config", out)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `default_provider = "mock"`)
}

func TestHistoryExport(t *testing.T) {
	c := newCLI(t, true)
	src := c.write(t, "a.txt", "alpha")
	code, out, _ := c.run(t, "", src)
	require.Equal(t, 0, code, out)

	store := openJournal(context.Background(), mustConfig(t, c.config), false, nil)
	require.NotNil(t, store)
	runID, err := store.LastRunID(context.Background())
	require.NoError(t, err)
	store.Close()

	xlsx := filepath.Join(c.dir, "run.xlsx")
	code, out, _ = c.run(t, "", "history", "export", runID, xlsx)
	require.Equal(t, 0, code, out)
	assert.FileExists(t, xlsx)
}

func TestHistoryDisabled(t *testing.T) {
	c := newCLI(t, false)
	code, _, errOut := c.run(t, "", "undo")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "history is disabled")
}

func mustConfig(t *testing.T, path string) *common.Config {
	t.Helper()
	cfg, err := common.LoadConfig(path, nil)
	require.NoError(t, err)
	return cfg
}

func TestSuggest_DoesNotRename(t *testing.T) {
	c := newCLI(t, false)
	src := c.write(t, "scan.txt", "meeting minutes for march")

	code, out, _ := c.run(t, "", "suggest", "--repeat", "2", "--convention", "PascalCase", src)
	require.Equal(t, 0, code, out)
	assert.FileExists(t, src)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first suggestion
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, []string{"MockFileOne", "MockFileTwo", "MockFileThree"}, first.Suggestions)
	assert.Equal(t, "MockFileOne.txt", first.Target)
	assert.Empty(t, first.Error)
}

func TestSuggest_MissingFile(t *testing.T) {
	c := newCLI(t, false)
	code, _, errOut := c.run(t, "", "suggest", filepath.Join(c.dir, "nope.txt"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, common.ErrNoInput.Error())
}

func TestHistoryCheck(t *testing.T) {
	c := newCLI(t, true)
	code, out, _ := c.run(t, "", "history", "check")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "History (sqlite): OK, 0 run(s) recorded")
}
