package campaign

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// Artifact naming.
const (
	FailureDirPrefix = "__failedFuzz"
	GlobalLogName    = "fuzz.log"
	FuzzedSuffix     = "_fuzzed"
	SnapshotSuffix   = ".before.test"
	ActionLogSuffix  = ".testplan.log"
	ExceptionName    = "exception.txt"
)

// MutatedName returns "<base>_fuzzed.<ext>" for a baseline path.
func MutatedName(baseline string) string {
	name := filepath.Base(baseline)
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + FuzzedSuffix + ext
}

// artifacts are the per-iteration files in the working directory.
type artifacts struct {
	baseline  string
	mutated   string
	snapshot  string
	actionLog string
}

func newArtifacts(workDir, baseline string) artifacts {
	mutated := filepath.Join(workDir, MutatedName(baseline))
	return artifacts{
		baseline:  baseline,
		mutated:   mutated,
		snapshot:  mutated + SnapshotSuffix,
		actionLog: mutated + ActionLogSuffix,
	}
}

func (a artifacts) paths() []string {
	return []string{a.baseline, a.mutated, a.snapshot, a.actionLog}
}

func writeFile(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return writeFile(dst, data)
}

func appendFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// allocFailureDir creates the next unused numbered failure directory. The
// counter only moves forward, and directories left by earlier runs are
// skipped rather than reused.
func (c *Campaign) allocFailureDir() (string, error) {
	for {
		c.failureSeq++
		dir := filepath.Join(c.opts.WorkDir, fmt.Sprintf("%s%d", FailureDirPrefix, c.failureSeq))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
}

// persist promotes an iteration's artifacts into a fresh failure directory
// and records the failure text in the per-iteration and global logs.
func (c *Campaign) persist(a artifacts, res *IterationResult) {
	text := fmt.Sprintf("[%s] campaign %s seed %d iteration %d\n%s\n",
		res.Time.Format(time.RFC3339), c.opts.Name, c.opts.Seed, res.Iteration, res.Err.Detail())

	if err := appendFile(a.actionLog, text); err != nil {
		c.log.WithError(err).Warn("Failed to append failure to action log")
	}
	c.appendGlobal(text)

	dir, err := c.allocFailureDir()
	if err != nil {
		c.log.WithError(err).Warn("Failed to create failure directory")
		return
	}
	res.FailureDir = dir

	for _, p := range a.paths() {
		if err := copyFile(p, filepath.Join(dir, filepath.Base(p))); err != nil {
			c.log.WithError(err).WithField("file", p).Warn("Failed to copy artifact")
		}
	}
	if err := writeFile(filepath.Join(dir, ExceptionName), []byte(text)); err != nil {
		c.log.WithError(err).Warn("Failed to write exception text")
	}
}

func (c *Campaign) appendGlobal(text string) {
	if err := appendFile(filepath.Join(c.opts.WorkDir, GlobalLogName), text); err != nil {
		c.log.WithError(err).Warn("Failed to append to global log")
	}
}

// cleanStale removes per-iteration files left by a previous batch. Failure
// directories are never touched.
func (c *Campaign) cleanStale() {
	patterns := []string{
		"*" + FuzzedSuffix + "*",
		"*" + SnapshotSuffix,
		"*" + ActionLogSuffix,
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(c.opts.WorkDir, pattern))
		if err != nil {
			c.log.WithError(err).Warn("Failed to list stale files")
			continue
		}
		for _, m := range matches {
			info, err := os.Lstat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
				c.log.WithError(err).WithField("file", m).Warn("Failed to delete stale file")
			}
		}
	}
}
