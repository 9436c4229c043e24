package loader

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandLoader(t *testing.T) {
	requireShell(t)

	t.Run("accepts on zero exit", func(t *testing.T) {
		l := &CommandLoader{Command: "sh", Args: []string{"-c", `test -s "$0"`}, Dir: t.TempDir()}
		assert.NoError(t, l.Load(context.Background(), []byte("data")))
	})

	t.Run("rejects on non-zero exit", func(t *testing.T) {
		l := &CommandLoader{Command: "sh", Args: []string{"-c", "echo bad record >&2; exit 3"}, Dir: t.TempDir()}
		err := l.Load(context.Background(), []byte("data"))

		var pe *ProcessError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 3, pe.ExitCode)
		assert.Contains(t, pe.Output, "bad record")
		assert.Contains(t, err.Error(), "exited with code 3")
	})

	t.Run("sees the candidate bytes", func(t *testing.T) {
		l := &CommandLoader{Command: "sh", Args: []string{"-c", `grep -q needle "{file}"`}, Dir: t.TempDir()}
		assert.NoError(t, l.Load(context.Background(), []byte("hay needle hay")))
		assert.Error(t, l.Load(context.Background(), []byte("hay hay")))
	})

	t.Run("times out", func(t *testing.T) {
		l := &CommandLoader{Command: "sh", Args: []string{"-c", "sleep 5"}, Timeout: 50 * time.Millisecond, Dir: t.TempDir()}
		err := l.Load(context.Background(), nil)

		var pe *ProcessError
		require.True(t, errors.As(err, &pe))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("missing binary", func(t *testing.T) {
		l := &CommandLoader{Command: "bmlfuzz-no-such-loader", Dir: t.TempDir()}
		err := l.Load(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start loader")
	})
}

func TestExpandArgs(t *testing.T) {
	assert.Equal(t, []string{"-v", "/tmp/x"}, expandArgs([]string{"-v"}, "/tmp/x"))
	assert.Equal(t, []string{"--in=/tmp/x", "-q"}, expandArgs([]string{"--in={file}", "-q"}, "/tmp/x"))
	assert.Equal(t, []string{"/tmp/x"}, expandArgs(nil, "/tmp/x"))
}
