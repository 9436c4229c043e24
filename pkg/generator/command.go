package generator

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds one external generator run.
const DefaultCommandTimeout = 2 * time.Minute

// Placeholders substituted in CommandGenerator.Args.
const (
	DirPlaceholder = "{dir}"
	OutPlaceholder = "{out}"
)

// CommandGenerator runs an external build step that writes Output into
// the working directory.
type CommandGenerator struct {
	Command string
	Args    []string
	Output  string
	Timeout time.Duration
}

// CreateBaseline implements Generator.
func (g *CommandGenerator) CreateBaseline(ctx context.Context, dir string) (string, error) {
	if g.Output == "" {
		return "", setupErr("command", "no output file configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &SetupError{Generator: "command", Err: err}
	}
	out := filepath.Join(dir, g.Output)
	// A stale output would mask a generator that silently did nothing.
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", setupErr("command", "failed to remove stale output: %w", err)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := make([]string, len(g.Args))
	for i, a := range g.Args {
		a = strings.ReplaceAll(a, DirPlaceholder, dir)
		args[i] = strings.ReplaceAll(a, OutPlaceholder, out)
	}
	cmd := exec.CommandContext(ctx, g.Command, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		return "", setupErr("command", "%s: %w: %s", g.Command, err, strings.TrimSpace(buf.String()))
	}

	if _, err := os.Stat(out); err != nil {
		return "", setupErr("command", "expected output %s: %w", out, err)
	}
	return out, nil
}
