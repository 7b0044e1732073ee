package scratch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaReleaseRemovesDirectory(t *testing.T) {
	m := NewManager(Options{BaseDir: t.TempDir()}, nil)

	a, err := m.New("pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(a.Path("page_1.png"), []byte("x"), 0o644))

	require.NoError(t, a.Release())
	_, err = os.Stat(a.Dir())
	assert.True(t, os.IsNotExist(err))

	// second release is a no-op
	require.NoError(t, a.Release())
	assert.Empty(t, m.Preserved())
}

func TestAreaPreserveReportsEachPathOnce(t *testing.T) {
	var reported []string
	m := NewManager(Options{
		BaseDir:  t.TempDir(),
		Preserve: true,
		Report:   func(p string) { reported = append(reported, p) },
	}, nil)

	a, err := m.New("pptx")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(a.Path("deck-0.jpeg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(a.Path("deck-1.jpeg"), []byte("x"), 0o644))

	require.NoError(t, a.Release())
	require.NoError(t, a.Release())

	want := []string{a.Dir(), filepath.Join(a.Dir(), "deck-0.jpeg"), filepath.Join(a.Dir(), "deck-1.jpeg")}
	assert.Equal(t, want, reported)
	assert.Equal(t, want, m.Preserved())
	for _, p := range want {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestNilAreaRelease(t *testing.T) {
	var a *Area
	assert.NoError(t, a.Release())
}

func TestLeaseCreatesAtMostOneArea(t *testing.T) {
	base := t.TempDir()
	m := NewManager(Options{BaseDir: base}, nil)
	l := m.Lease("txt")

	assert.Nil(t, l.Area())
	require.NoError(t, l.Release())

	a1, err := l.Get()
	require.NoError(t, err)
	a2, err := l.Get()
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, l.Release())
	entries, err = os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
