/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/bmlfuzz/pkg/mutate"
)

// Generator kinds.
const (
	GeneratorSynthetic = "synthetic"
	GeneratorFile      = "file"
	GeneratorCommand   = "command"
)

// Loader kinds.
const (
	LoaderStream    = "stream"
	LoaderContainer = "container"
	LoaderCommand   = "command"
)

// Default artifact names under WorkDir.
const (
	DefaultJournalName  = "journal.log"
	DefaultFindingsName = "findings.db"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// CampaignConfig describes one fuzzing campaign
type CampaignConfig struct {
	Name             string           `yaml:"name" toml:"name" json:"name"`
	WorkDir          string           `yaml:"work_dir" toml:"work_dir" json:"work_dir"`
	Seed             *uint64          `yaml:"seed,omitempty" toml:"seed,omitempty" json:"seed,omitempty"`
	MaxIterations    int              `yaml:"max_iterations" toml:"max_iterations" json:"max_iterations"`
	Generator        GeneratorConfig  `yaml:"generator" toml:"generator" json:"generator"`
	Loader           LoaderConfig     `yaml:"loader" toml:"loader" json:"loader"`
	Strategies       []StrategyConfig `yaml:"strategies" toml:"strategies" json:"strategies"`
	ExpectedFailures []string         `yaml:"expected_failures,omitempty" toml:"expected_failures,omitempty" json:"expected_failures,omitempty"`
	Lenient          bool             `yaml:"lenient,omitempty" toml:"lenient,omitempty" json:"lenient,omitempty"`
	FindingsDB       string           `yaml:"findings_db,omitempty" toml:"findings_db,omitempty" json:"findings_db,omitempty"`
	Journal          string           `yaml:"journal,omitempty" toml:"journal,omitempty" json:"journal,omitempty"`
	Logging          Logging          `yaml:"logging" toml:"logging" json:"logging"`
	Monitor          Monitor          `yaml:"monitor" toml:"monitor" json:"monitor"`
}

// GeneratorConfig selects how baselines are produced
type GeneratorConfig struct {
	Kind     string   `yaml:"kind" toml:"kind" json:"kind"`
	Path     string   `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty"`
	Command  string   `yaml:"command,omitempty" toml:"command,omitempty" json:"command,omitempty"`
	Args     []string `yaml:"args,omitempty" toml:"args,omitempty" json:"args,omitempty"`
	Output   string   `yaml:"output,omitempty" toml:"output,omitempty" json:"output,omitempty"`
	Timeout  string   `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty"`
	Elements int      `yaml:"elements,omitempty" toml:"elements,omitempty" json:"elements,omitempty"`
	Depth    int      `yaml:"depth,omitempty" toml:"depth,omitempty" json:"depth,omitempty"`
}

// LoaderConfig selects the loader fed with mutated documents
type LoaderConfig struct {
	Kind          string   `yaml:"kind" toml:"kind" json:"kind"`
	Command       string   `yaml:"command,omitempty" toml:"command,omitempty" json:"command,omitempty"`
	Args          []string `yaml:"args,omitempty" toml:"args,omitempty" json:"args,omitempty"`
	Timeout       string   `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty"`
	ContainerPart string   `yaml:"container_part,omitempty" toml:"container_part,omitempty" json:"container_part,omitempty"`
}

// StrategyConfig names a mutation strategy and its parameters. Unset
// parameters take the strategy's defaults.
type StrategyConfig struct {
	Name              string `yaml:"name" toml:"name" json:"name"`
	Frequency         *int   `yaml:"frequency,omitempty" toml:"frequency,omitempty" json:"frequency,omitempty"`
	Variance          *int   `yaml:"variance,omitempty" toml:"variance,omitempty" json:"variance,omitempty"`
	SwapCount         *int   `yaml:"swap_count,omitempty" toml:"swap_count,omitempty" json:"swap_count,omitempty"`
	MaxBytesToInsert  *int   `yaml:"max_bytes_to_insert,omitempty" toml:"max_bytes_to_insert,omitempty" json:"max_bytes_to_insert,omitempty"`
	AllowDuplicateIDs bool   `yaml:"allow_duplicate_ids,omitempty" toml:"allow_duplicate_ids,omitempty" json:"allow_duplicate_ids,omitempty"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty" json:"format,omitempty"`
}

// Monitor configures the metrics and status server
type Monitor struct {
	Bind string `yaml:"bind" toml:"bind" json:"bind"`
	Port int    `yaml:"port" toml:"port" json:"port"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *CampaignConfig {
	return &CampaignConfig{
		Name:          "default",
		WorkDir:       "./fuzz",
		MaxIterations: 100,
		Generator: GeneratorConfig{
			Kind: GeneratorSynthetic,
		},
		Loader: LoaderConfig{
			Kind: LoaderStream,
		},
		Strategies: []StrategyConfig{
			{Name: mutate.NameRandomByte},
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Monitor: Monitor{
			Bind: "127.0.0.1",
			Port: 9464,
		},
	}
}

// LoadConfig loads a campaign from path. The format follows the extension:
// .toml, .json/.jsonc/.hujson, anything else is YAML. Fields absent from
// the file keep their DefaultConfig values.
func LoadConfig(configPath string) (*CampaignConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Strategies = nil
	if err := decode(configPath, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultConfig().Strategies
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *CampaignConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".json", ".jsonc", ".hujson":
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return err
		}
		dec := json.NewDecoder(bytes.NewReader(standardized))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// SaveConfig writes the configuration as YAML, replacing any existing file atomically
func SaveConfig(cfg *CampaignConfig, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomic.WriteFile(configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// Validate checks the settings that do not depend on strategy construction.
func (c *CampaignConfig) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("%w: work_dir is required", ErrInvalidConfig)
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("%w: at least one strategy is required", ErrInvalidConfig)
	}

	switch c.Generator.Kind {
	case GeneratorSynthetic:
	case GeneratorFile:
		if c.Generator.Path == "" {
			return fmt.Errorf("%w: generator.path is required for kind %q", ErrInvalidConfig, GeneratorFile)
		}
	case GeneratorCommand:
		if c.Generator.Command == "" || c.Generator.Output == "" {
			return fmt.Errorf("%w: generator.command and generator.output are required for kind %q", ErrInvalidConfig, GeneratorCommand)
		}
	default:
		return fmt.Errorf("%w: unknown generator kind %q", ErrInvalidConfig, c.Generator.Kind)
	}

	switch c.Loader.Kind {
	case LoaderStream, LoaderContainer:
	case LoaderCommand:
		if c.Loader.Command == "" {
			return fmt.Errorf("%w: loader.command is required for kind %q", ErrInvalidConfig, LoaderCommand)
		}
	default:
		return fmt.Errorf("%w: unknown loader kind %q", ErrInvalidConfig, c.Loader.Kind)
	}

	if _, err := c.Generator.TimeoutDuration(); err != nil {
		return fmt.Errorf("%w: generator.timeout: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Loader.TimeoutDuration(); err != nil {
		return fmt.Errorf("%w: loader.timeout: %v", ErrInvalidConfig, err)
	}
	if _, err := c.BuildStrategies(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// BuildStrategies constructs the configured strategy chain in order.
func (c *CampaignConfig) BuildStrategies() (mutate.Chain, error) {
	chain := make(mutate.Chain, 0, len(c.Strategies))
	for i, sc := range c.Strategies {
		s, err := mutate.Build(sc.Name, sc.Params())
		if err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
		chain = append(chain, s)
	}
	return chain, nil
}

// Params converts the configured parameters for mutate.Build.
func (s StrategyConfig) Params() mutate.Params {
	return mutate.Params{
		Frequency:         s.Frequency,
		Variance:          s.Variance,
		SwapCount:         s.SwapCount,
		MaxBytesToInsert:  s.MaxBytesToInsert,
		AllowDuplicateIDs: s.AllowDuplicateIDs,
	}
}

// TimeoutDuration parses Timeout. Empty means no explicit timeout.
func (g GeneratorConfig) TimeoutDuration() (time.Duration, error) {
	return parseTimeout(g.Timeout)
}

// TimeoutDuration parses Timeout. Empty means no explicit timeout.
func (l LoaderConfig) TimeoutDuration() (time.Duration, error) {
	return parseTimeout(l.Timeout)
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", s)
	}
	return d, nil
}

// ResolveSeed returns the configured seed, or one derived from now when
// the seed is unset. The result is stored so it can be logged and saved.
func (c *CampaignConfig) ResolveSeed(now time.Time) uint64 {
	if c.Seed == nil {
		seed := uint64(now.UnixNano())
		c.Seed = &seed
	}
	return *c.Seed
}

// JournalPath returns the journal file, defaulting to one under WorkDir.
func (c *CampaignConfig) JournalPath() string {
	if c.Journal != "" {
		return c.Journal
	}
	return filepath.Join(c.WorkDir, DefaultJournalName)
}

// FindingsPath returns the findings database, defaulting to one under WorkDir.
func (c *CampaignConfig) FindingsPath() string {
	if c.FindingsDB != "" {
		return c.FindingsDB
	}
	return filepath.Join(c.WorkDir, DefaultFindingsName)
}

// Address returns the monitor listen address.
func (m Monitor) Address() string {
	return fmt.Sprintf("%s:%d", m.Bind, m.Port)
}
