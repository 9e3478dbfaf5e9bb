package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Provider name constants. The selector is a closed set, validated on load,
// rather than free-form string matching at dispatch time.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderMock      = "mock"
)

// Config describes a gateway: which provider to use, its generation
// parameters, the cache backend and the retry bounds applied by calling nodes.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", "google" or "mock".
	Provider string `yaml:"provider"`

	// Model names the provider-side model. Empty uses the provider default.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. Usually left empty in the
	// file and supplied via the provider's environment variable.
	APIKey string `yaml:"api_key"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// MaxRetries and RetryDelay bound the engine-level retry of transient
	// provider failures. RetryDelay is a Go duration string.
	MaxRetries int    `yaml:"max_retries"`
	RetryDelay string `yaml:"retry_delay"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	// Backend is "memory", "file" or "sqlite". Empty means "memory".
	Backend string `yaml:"backend"`

	// Path locates the cache file or database for persistent backends.
	Path string `yaml:"path"`
}

// Environment variables consulted for keys and model overrides, matching the
// providers' own conventions.
const (
	envAnthropicKey   = "ANTHROPIC_API_KEY"
	envAnthropicModel = "ANTHROPIC_MODEL"
	envOpenAIKey      = "OPENAI_API_KEY"
	envOpenAIModel    = "OPENAI_MODEL"
	envGoogleKey      = "GEMINI_API_KEY"
	envGoogleModel    = "GEMINI_MODEL"
)

// DefaultConfig returns a config targeting the Google provider with a
// file-backed cache, mirroring the common "cheap and cached" setup.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderGoogle,
		MaxRetries: 3,
		RetryDelay: "10s",
		Cache: CacheConfig{
			Backend: "file",
			Path:    "llm_cache.json",
		},
	}
}

// LoadConfig reads a YAML config file, applies environment overrides and
// validates the provider selector.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path) // #nosec G304 - config path is caller-chosen
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv fills the API key and model from the selected provider's
// environment variables when the file left them empty.
func (c *Config) applyEnv() {
	var keyVar, modelVar string
	switch c.Provider {
	case ProviderAnthropic:
		keyVar, modelVar = envAnthropicKey, envAnthropicModel
	case ProviderOpenAI:
		keyVar, modelVar = envOpenAIKey, envOpenAIModel
	case ProviderGoogle:
		keyVar, modelVar = envGoogleKey, envGoogleModel
	default:
		return
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv(keyVar)
	}
	if c.Model == "" {
		c.Model = os.Getenv(modelVar)
	}
}

// Validate checks the provider selector and cache backend against their
// closed sets.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Cache.Backend {
	case "", "memory":
	case "file", "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache backend %q requires a path", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.RetryDelay != "" {
		if _, err := time.ParseDuration(c.RetryDelay); err != nil {
			return fmt.Errorf("invalid retry_delay %q: %w", c.RetryDelay, err)
		}
	}
	return nil
}

// RetryDelayDuration returns the parsed retry delay, or zero when unset.
func (c Config) RetryDelayDuration() time.Duration {
	if c.RetryDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return 0
	}
	return d
}

// NewCache constructs the cache backend described by the config.
func NewCache(cfg CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(), nil
	case "file":
		return NewFileCache(cfg.Path)
	case "sqlite":
		return NewSQLiteCache(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
