package generator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileGenerator(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page.baml")
	require.NoError(t, os.WriteFile(src, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 0}, 0o644))

	dir := t.TempDir()
	path, err := (&FileGenerator{Path: src}).CreateBaseline(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "page.baml"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 12)
}

func TestFileGenerator_MissingSource(t *testing.T) {
	_, err := (&FileGenerator{Path: filepath.Join(t.TempDir(), "missing.baml")}).CreateBaseline(context.Background(), t.TempDir())

	var se *SetupError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "file", se.Generator)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCommandGenerator(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("writes output", func(t *testing.T) {
		g := &CommandGenerator{Command: "sh", Args: []string{"-c", `printf abc > "{out}"`}, Output: "out.baml"}
		dir := t.TempDir()
		path, err := g.CreateBaseline(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "out.baml"), path)
	})

	t.Run("failing command", func(t *testing.T) {
		g := &CommandGenerator{Command: "sh", Args: []string{"-c", "echo compile error; exit 1"}, Output: "out.baml"}
		_, err := g.CreateBaseline(context.Background(), t.TempDir())

		var se *SetupError
		require.True(t, errors.As(err, &se))
		assert.Contains(t, err.Error(), "compile error")
	})

	t.Run("no output produced", func(t *testing.T) {
		g := &CommandGenerator{Command: "sh", Args: []string{"-c", "true"}, Output: "out.baml"}
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "out.baml"), []byte("stale"), 0o644))

		_, err := g.CreateBaseline(context.Background(), dir)
		var se *SetupError
		require.True(t, errors.As(err, &se))
	})

	t.Run("no output configured", func(t *testing.T) {
		_, err := (&CommandGenerator{Command: "true"}).CreateBaseline(context.Background(), t.TempDir())
		var se *SetupError
		assert.True(t, errors.As(err, &se))
	})
}
