package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ssargent/bmlfuzz/pkg/container"
)

// DefaultPartSuffix selects the stream parts of a container.
const DefaultPartSuffix = ".baml"

// ContainerLoader opens a compound file and hands each stream part to
// Stream. When Part is set only that part is loaded.
type ContainerLoader struct {
	Part   string
	Suffix string
	Stream Loader
}

// NewContainerLoader creates a container loader over the reference stream loader.
func NewContainerLoader(part string) *ContainerLoader {
	return &ContainerLoader{Part: part, Suffix: DefaultPartSuffix, Stream: NewStreamLoader()}
}

// Load implements Loader.
func (l *ContainerLoader) Load(ctx context.Context, data []byte) error {
	c, err := container.Open(data)
	if err != nil {
		return err
	}

	names := []string{l.Part}
	if l.Part == "" {
		suffix := l.Suffix
		if suffix == "" {
			suffix = DefaultPartSuffix
		}
		names = c.Find(func(name string, _ []byte) bool {
			return strings.HasSuffix(strings.ToLower(name), suffix)
		})
	}

	for _, name := range names {
		part, err := c.Part(name)
		if err != nil {
			return err
		}
		if err := l.Stream.Load(ctx, part); err != nil {
			return fmt.Errorf("part %s: %w", name, err)
		}
	}
	return nil
}
