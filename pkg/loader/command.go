package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds one external load.
const DefaultCommandTimeout = 30 * time.Second

// FilePlaceholder in CommandLoader.Args is replaced by the input path.
const FilePlaceholder = "{file}"

// ProcessError reports an external loader that rejected its input. Err is
// set only when the process was stopped by its context; an ordinary
// non-zero exit is its own innermost cause so its output can be matched.
type ProcessError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *ProcessError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, out)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// CommandLoader runs an external program against the candidate document.
// A non-zero exit is a load failure; its output is kept for signature
// matching.
type CommandLoader struct {
	Command string
	Args    []string
	Timeout time.Duration
	// Dir holds the temporary input file. Empty means the system default.
	Dir string
}

// Load implements Loader.
func (l *CommandLoader) Load(ctx context.Context, data []byte) error {
	f, err := os.CreateTemp(l.Dir, "bmlfuzz-load-*")
	if err != nil {
		return fmt.Errorf("failed to create loader input: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write loader input: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close loader input: %w", err)
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.Command, expandArgs(l.Args, path)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return &ProcessError{Command: l.Command, ExitCode: -1, Output: out.String(), Err: ctx.Err()}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessError{Command: l.Command, ExitCode: exitErr.ExitCode(), Output: out.String()}
	}
	return fmt.Errorf("failed to start loader %s: %w", l.Command, err)
}

// expandArgs substitutes the input path, appending it when no argument
// mentions the placeholder.
func expandArgs(args []string, path string) []string {
	out := make([]string, 0, len(args)+1)
	found := false
	for _, a := range args {
		if strings.Contains(a, FilePlaceholder) {
			found = true
			a = strings.ReplaceAll(a, FilePlaceholder, path)
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, path)
	}
	return out
}
