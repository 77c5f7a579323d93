// Package config provides configuration loading and the encrypted local
// secrets store for the client-direct provider credential.
//
// Configuration is split the way the rest of the codebase expects it:
//
//   - Config: non-secret settings (function endpoint, provider, model,
//     database path, sync timing) loaded from a YAML file. Accessed by
//     value; callers never hold a mutable reference.
//   - Secrets: the direct-path provider API key, held only in a local
//     scrypt/AES-GCM encrypted file that is never synced anywhere.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"momentum/pkg/logx"
)

// Provider names accepted in the config file.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
	ProviderOllama     = "ollama"
)

// Default model identifiers per provider.
const (
	DefaultOpenRouterModel = "google/gemma-3n-e4b-it"
	DefaultAnthropicModel  = "claude-3-5-haiku-latest"
	DefaultGoogleModel     = "gemini-2.0-flash"
	DefaultOllamaModel     = "llama3.2"
)

// SyncConfig controls the sync status display windows.
type SyncConfig struct {
	// SyncedRevert is how long the "synced" status is shown before
	// reverting to idle.
	SyncedRevert time.Duration `yaml:"synced_revert"`
	// ErrorRevert is how long the "error" status is shown before
	// reverting to idle.
	ErrorRevert time.Duration `yaml:"error_revert"`
}

// Config holds all non-secret settings.
//
//nolint:govet // struct alignment optimization not critical for config
type Config struct {
	// FunctionURL is the base URL of the server hosting the AI and
	// persistence functions, e.g. http://localhost:8787. Empty disables
	// the server path.
	FunctionURL string `yaml:"function_url"`
	// Provider selects the client-direct text-generation backend.
	Provider string `yaml:"provider"`
	// Model overrides the provider's default model when non-empty.
	Model string `yaml:"model"`
	// OllamaHost is the local Ollama endpoint for the ollama provider.
	OllamaHost string `yaml:"ollama_host"`
	// DBPath is the SQLite path used by the server binary.
	DBPath string `yaml:"db_path"`
	// ListenAddr is the bind address for the server binary.
	ListenAddr string `yaml:"listen_addr"`
	// SecretsPath is the encrypted secrets file location.
	SecretsPath string `yaml:"secrets_path"`
	// Sync holds the status display windows.
	Sync SyncConfig `yaml:"sync"`
}

// DefaultConfig returns the built-in defaults, used when no config file is
// present and as the base that file values overlay.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderOpenRouter,
		OllamaHost:  "http://localhost:11434",
		DBPath:      "momentum.db",
		ListenAddr:  ":8787",
		SecretsPath: "secrets.json.enc",
		Sync: SyncConfig{
			SyncedRevert: 2500 * time.Millisecond,
			ErrorRevert:  4 * time.Second,
		},
	}
}

// DefaultModel returns the default model for the configured provider.
func (c *Config) DefaultModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderGoogle:
		return DefaultGoogleModel
	case ProviderOllama:
		return DefaultOllamaModel
	default:
		return DefaultOpenRouterModel
	}
}

// Validate checks the config for values that would fail later in confusing
// ways.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenRouter, ProviderAnthropic, ProviderGoogle, ProviderOllama, "":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Sync.SyncedRevert <= 0 || c.Sync.ErrorRevert <= 0 {
		return fmt.Errorf("sync revert windows must be positive")
	}
	return nil
}

// Global config instance with mutex protection, loaded once at startup.
//
//nolint:gochecknoglobals // Intentional singleton pattern for config access
var (
	loaded Config
	mu     sync.RWMutex
	logger = logx.NewLogger("config")
)

// Load reads the YAML config file at path, overlaying it on the defaults,
// and installs it as the process config. A missing file is not an error;
// the defaults are installed instead.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Debug("no config file at %s, using defaults", path)
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	mu.Lock()
	loaded = cfg
	mu.Unlock()
	return cfg, nil
}

// Get returns the process config by value.
func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return loaded
}

// Set installs a config directly. Used by tests and by callers that build
// configuration programmatically.
func Set(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	loaded = cfg
}
