package llm_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/loom/llm"
)

func TestLoadConfig(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "llm.yaml")
		doc := `
provider: mock
model: test-model
max_tokens: 256
temperature: 0.2
max_retries: 5
retry_delay: 2s
cache:
  backend: memory
`
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := llm.LoadConfig(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}

		if cfg.Provider != llm.ProviderMock {
			t.Errorf("provider = %q, want mock", cfg.Provider)
		}
		if cfg.Model != "test-model" {
			t.Errorf("model = %q, want test-model", cfg.Model)
		}
		if cfg.MaxRetries != 5 {
			t.Errorf("max_retries = %d, want 5", cfg.MaxRetries)
		}
		if cfg.RetryDelayDuration() != 2*time.Second {
			t.Errorf("retry delay = %v, want 2s", cfg.RetryDelayDuration())
		}
		if cfg.Cache.Backend != "memory" {
			t.Errorf("cache backend = %q, want memory", cfg.Cache.Backend)
		}
	})

	t.Run("environment fills missing key and model", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-test")
		t.Setenv("ANTHROPIC_MODEL", "claude-test")

		path := filepath.Join(t.TempDir(), "llm.yaml")
		doc := `
provider: anthropic
cache:
  backend: memory
`
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := llm.LoadConfig(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.APIKey != "sk-test" {
			t.Errorf("api key = %q, want the environment value", cfg.APIKey)
		}
		if cfg.Model != "claude-test" {
			t.Errorf("model = %q, want the environment value", cfg.Model)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := llm.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     llm.Config
		wantErr bool
	}{
		{"mock with memory cache", llm.Config{Provider: llm.ProviderMock}, false},
		{"google default", llm.DefaultConfig(), false},
		{"unknown provider", llm.Config{Provider: "gpt9"}, true},
		{"file cache without path", llm.Config{Provider: llm.ProviderMock, Cache: llm.CacheConfig{Backend: "file"}}, true},
		{"sqlite cache without path", llm.Config{Provider: llm.ProviderMock, Cache: llm.CacheConfig{Backend: "sqlite"}}, true},
		{"unknown cache backend", llm.Config{Provider: llm.ProviderMock, Cache: llm.CacheConfig{Backend: "redis"}}, true},
		{"bad retry delay", llm.Config{Provider: llm.ProviderMock, RetryDelay: "soon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCache(t *testing.T) {
	t.Run("memory by default", func(t *testing.T) {
		cache, err := llm.NewCache(llm.CacheConfig{})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if _, ok := cache.(*llm.MemoryCache); !ok {
			t.Errorf("cache type = %T, want *MemoryCache", cache)
		}
	})

	t.Run("file backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		cache, err := llm.NewCache(llm.CacheConfig{Backend: "file", Path: path})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if _, ok := cache.(*llm.FileCache); !ok {
			t.Errorf("cache type = %T, want *FileCache", cache)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := llm.NewCache(llm.CacheConfig{Backend: "redis"}); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
}
