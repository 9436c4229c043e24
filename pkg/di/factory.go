package di

import (
	"fmt"

	"github.com/ssargent/bmlfuzz/pkg/config"
	"github.com/ssargent/bmlfuzz/pkg/generator"
	"github.com/ssargent/bmlfuzz/pkg/loader"
)

// DefaultGeneratorFactory is the default implementation of GeneratorFactory
type DefaultGeneratorFactory struct{}

// CreateGenerator builds the configured generator. Synthetic generators
// are seeded from the campaign seed so the whole campaign replays.
func (f *DefaultGeneratorFactory) CreateGenerator(cfg *config.CampaignConfig, seed uint64) (generator.Generator, error) {
	g := cfg.Generator
	timeout, err := g.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	switch g.Kind {
	case config.GeneratorSynthetic:
		gen := generator.NewSyntheticGenerator(seed, generator.SynthOptions{Elements: g.Elements, Depth: g.Depth})
		gen.Container = cfg.Loader.Kind == config.LoaderContainer
		return gen, nil
	case config.GeneratorFile:
		return &generator.FileGenerator{Path: g.Path}, nil
	case config.GeneratorCommand:
		return &generator.CommandGenerator{Command: g.Command, Args: g.Args, Output: g.Output, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown generator kind %q", g.Kind)
	}
}

// DefaultLoaderFactory is the default implementation of LoaderFactory
type DefaultLoaderFactory struct{}

// CreateLoader builds the configured loader
func (f *DefaultLoaderFactory) CreateLoader(cfg *config.CampaignConfig) (loader.Loader, error) {
	l := cfg.Loader
	timeout, err := l.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	switch l.Kind {
	case config.LoaderStream:
		return loader.NewStreamLoader(), nil
	case config.LoaderContainer:
		return loader.NewContainerLoader(l.ContainerPart), nil
	case config.LoaderCommand:
		return &loader.CommandLoader{Command: l.Command, Args: l.Args, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown loader kind %q", l.Kind)
	}
}
