// Package di provides dependency injection container
package di

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
	"github.com/ssargent/bmlfuzz/pkg/config"
	"github.com/ssargent/bmlfuzz/pkg/generator"
	"github.com/ssargent/bmlfuzz/pkg/loader"
)

// GeneratorFactory creates the baseline generator of a campaign
type GeneratorFactory interface {
	CreateGenerator(cfg *config.CampaignConfig, seed uint64) (generator.Generator, error)
}

// LoaderFactory creates the loader of a campaign
type LoaderFactory interface {
	CreateLoader(cfg *config.CampaignConfig) (loader.Loader, error)
}

// Container holds all the dependencies for the application
type Container struct {
	generatorFactory GeneratorFactory
	loaderFactory    LoaderFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		generatorFactory: &DefaultGeneratorFactory{},
		loaderFactory:    &DefaultLoaderFactory{},
	}
}

// GetGeneratorFactory returns the generator factory
func (c *Container) GetGeneratorFactory() GeneratorFactory {
	return c.generatorFactory
}

// GetLoaderFactory returns the loader factory
func (c *Container) GetLoaderFactory() LoaderFactory {
	return c.loaderFactory
}

// SetGeneratorFactory allows overriding the generator factory (for testing)
func (c *Container) SetGeneratorFactory(factory GeneratorFactory) {
	c.generatorFactory = factory
}

// SetLoaderFactory allows overriding the loader factory (for testing)
func (c *Container) SetLoaderFactory(factory LoaderFactory) {
	c.loaderFactory = factory
}

// BuildCampaign assembles a campaign from its configuration
func (c *Container) BuildCampaign(cfg *config.CampaignConfig, seed uint64, logger logrus.FieldLogger, observers ...campaign.Observer) (*campaign.Campaign, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategies, err := cfg.BuildStrategies()
	if err != nil {
		return nil, err
	}
	allow, err := campaign.NewAllowList(cfg.ExpectedFailures)
	if err != nil {
		return nil, fmt.Errorf("expected_failures: %w", err)
	}
	gen, err := c.generatorFactory.CreateGenerator(cfg, seed)
	if err != nil {
		return nil, err
	}
	ld, err := c.loaderFactory.CreateLoader(cfg)
	if err != nil {
		return nil, err
	}

	return campaign.New(campaign.Options{
		Name:          cfg.Name,
		WorkDir:       cfg.WorkDir,
		Seed:          seed,
		MaxIterations: cfg.MaxIterations,
		Generator:     gen,
		Loader:        ld,
		Strategies:    strategies,
		AllowList:     allow,
		ContainerMode: cfg.Loader.Kind == config.LoaderContainer,
		ContainerPart: cfg.Loader.ContainerPart,
		Lenient:       cfg.Lenient,
		Observers:     observers,
		Logger:        logger,
	})
}
