package generator

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileGenerator copies a fixed baseline document into the working directory.
type FileGenerator struct {
	Path string
}

// CreateBaseline implements Generator.
func (g *FileGenerator) CreateBaseline(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(g.Path)
	if err != nil {
		return "", setupErr("file", "failed to read baseline: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &SetupError{Generator: "file", Err: err}
	}
	dst := filepath.Join(dir, filepath.Base(g.Path))
	if err := atomic.WriteFile(dst, bytesReader(data)); err != nil {
		return "", setupErr("file", "failed to copy baseline to %s: %w", dst, err)
	}
	return dst, nil
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
