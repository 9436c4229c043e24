package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/bmlfuzz/pkg/mutate"
)

func intPtr(v int) *int { return &v }

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "./fuzz", config.WorkDir)
	assert.Equal(t, 100, config.MaxIterations)
	assert.Nil(t, config.Seed)
	assert.Equal(t, GeneratorSynthetic, config.Generator.Kind)
	assert.Equal(t, LoaderStream, config.Loader.Kind)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "127.0.0.1:9464", config.Monitor.Address())
	assert.NoError(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "campaign.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
name: ids
work_dir: /tmp/ids
seed: 42
max_iterations: -1
strategies:
  - name: ConnectionIdStrategy
    allow_duplicate_ids: true
  - name: insertion
    max_bytes_to_insert: 3
expected_failures: [truncated-stream]
`), 0600))

		config, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "ids", config.Name)
		require.NotNil(t, config.Seed)
		assert.Equal(t, uint64(42), *config.Seed)
		assert.Equal(t, -1, config.MaxIterations)
		require.Len(t, config.Strategies, 2)
		assert.True(t, config.Strategies[0].AllowDuplicateIDs)
		assert.Equal(t, 3, *config.Strategies[1].MaxBytesToInsert)
		assert.Equal(t, []string{"truncated-stream"}, config.ExpectedFailures)
		// absent sections keep their defaults
		assert.Equal(t, LoaderStream, config.Loader.Kind)
		assert.Equal(t, "info", config.Logging.Level)
	})

	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "campaign.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
name = "shuffle"
work_dir = "/tmp/shuffle"
max_iterations = 10

[loader]
kind = "container"
container_part = "ui/page.baml"

[[strategies]]
name = "shuffle"
swap_count = 4
`), 0600))

		config, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, LoaderContainer, config.Loader.Kind)
		assert.Equal(t, "ui/page.baml", config.Loader.ContainerPart)
		require.Len(t, config.Strategies, 1)
		assert.Equal(t, 4, *config.Strategies[0].SwapCount)
		assert.Nil(t, config.Seed)
	})

	t.Run("json with comments", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "campaign.jsonc")
		require.NoError(t, os.WriteFile(path, []byte(`{
  // corrupt bytes densely
  "name": "bytes",
  "work_dir": "/tmp/bytes",
  "strategies": [{"name": "random_byte", "frequency": 8, "variance": 2,},],
}`), 0600))

		config, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "bytes", config.Name)
		assert.Equal(t, 8, *config.Strategies[0].Frequency)
		assert.Equal(t, 100, config.MaxIterations)
	})

	t.Run("no strategies falls back to default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "campaign.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: bare\n"), 0600))

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Strategies, config.Strategies)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "campaign.yaml")
		require.NoError(t, os.WriteFile(path, []byte("strategies: [unclosed"), 0600))

		_, err := LoadConfig(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("unknown json field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "campaign.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"nmae": "typo"}`), 0600))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "campaign.yaml")
	seed := uint64(7)
	config := DefaultConfig()
	config.Seed = &seed
	config.Strategies = []StrategyConfig{{Name: mutate.NameShuffle, SwapCount: intPtr(2)}}

	require.NoError(t, SaveConfig(config, path))
	assert.True(t, ConfigExists(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, 7, raw["seed"])

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *CampaignConfig)
		errMsg string
	}{
		{"missing work dir", func(c *CampaignConfig) { c.WorkDir = "" }, "work_dir is required"},
		{"no strategies", func(c *CampaignConfig) { c.Strategies = nil }, "at least one strategy"},
		{"unknown strategy", func(c *CampaignConfig) { c.Strategies = []StrategyConfig{{Name: "bitflip"}} }, "unknown strategy"},
		{"variance not below frequency", func(c *CampaignConfig) {
			c.Strategies = []StrategyConfig{{Name: "random-byte", Frequency: intPtr(4), Variance: intPtr(4)}}
		}, "variance"},
		{"negative swap count", func(c *CampaignConfig) {
			c.Strategies = []StrategyConfig{{Name: "shuffle", SwapCount: intPtr(-1)}}
		}, "strategies[0]"},
		{"file generator without path", func(c *CampaignConfig) { c.Generator.Kind = GeneratorFile }, "generator.path"},
		{"command generator without output", func(c *CampaignConfig) {
			c.Generator = GeneratorConfig{Kind: GeneratorCommand, Command: "xamlc"}
		}, "generator.output"},
		{"unknown generator", func(c *CampaignConfig) { c.Generator.Kind = "magic" }, "unknown generator kind"},
		{"command loader without command", func(c *CampaignConfig) { c.Loader.Kind = LoaderCommand }, "loader.command"},
		{"unknown loader", func(c *CampaignConfig) { c.Loader.Kind = "magic" }, "unknown loader kind"},
		{"bad timeout", func(c *CampaignConfig) { c.Loader.Timeout = "soon" }, "loader.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuildStrategies(t *testing.T) {
	config := DefaultConfig()
	config.Strategies = []StrategyConfig{
		{Name: "ShuffleStrategy", SwapCount: intPtr(3)},
		{Name: "connection_id", AllowDuplicateIDs: true},
	}

	chain, err := config.BuildStrategies()
	require.NoError(t, err)
	assert.Equal(t, []string{mutate.NameShuffle, mutate.NameConnectionID}, chain.Names())
}

func TestTimeoutDuration(t *testing.T) {
	d, err := LoaderConfig{Timeout: "1500ms"}.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	d, err = GeneratorConfig{}.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = LoaderConfig{Timeout: "-1s"}.TimeoutDuration()
	assert.Error(t, err)
}

func TestResolveSeed(t *testing.T) {
	now := time.Unix(0, 123456789)

	config := DefaultConfig()
	assert.Equal(t, uint64(123456789), config.ResolveSeed(now))
	require.NotNil(t, config.Seed)
	assert.Equal(t, uint64(123456789), config.ResolveSeed(now.Add(time.Hour)))

	seed := uint64(42)
	config.Seed = &seed
	assert.Equal(t, uint64(42), config.ResolveSeed(now))
}

func TestArtifactPaths(t *testing.T) {
	config := DefaultConfig()
	config.WorkDir = "/tmp/campaign"
	assert.Equal(t, filepath.Join("/tmp/campaign", DefaultJournalName), config.JournalPath())
	assert.Equal(t, filepath.Join("/tmp/campaign", DefaultFindingsName), config.FindingsPath())

	config.Journal = "/var/log/fuzz.journal"
	config.FindingsDB = "/var/lib/findings"
	assert.Equal(t, "/var/log/fuzz.journal", config.JournalPath())
	assert.Equal(t, "/var/lib/findings", config.FindingsPath())
}
