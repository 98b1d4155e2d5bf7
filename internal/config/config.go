// Package config handles RunLens configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./runlens.yaml, ~/.config/runlens/runlens.yaml, /etc/runlens/runlens.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"runlens.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "runlens", "runlens.yaml"))
	}

	paths = append(paths, "/etc/runlens/runlens.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all RunLens configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Strava    StravaConfig    `yaml:"strava"`
	Model     ModelConfig     `yaml:"model"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Cache     CacheConfig     `yaml:"cache"`
	Agent     AgentConfig     `yaml:"agent"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the insight API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// StravaConfig defines the upstream activity source credentials.
// The access token is obtained at runtime via the refresh-token grant.
type StravaConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	BaseURL      string `yaml:"base_url"` // override for tests; default https://www.strava.com/api/v3
}

// ModelConfig selects the LLM provider and model driving the loop.
type ModelConfig struct {
	Provider string `yaml:"provider"` // anthropic or ollama
	Name     string `yaml:"name"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// OllamaConfig defines the local Ollama endpoint.
type OllamaConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig defines the activity range cache behavior.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`         // default 24h
	MaxEntries int           `yaml:"max_entries"` // exact-match bound, default 50
}

// UnmarshalYAML accepts ttl as a Go duration string ("24h", "90m").
// Fields absent from the document keep their current values.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"max_entries"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
		c.TTL = d
	}
	if raw.MaxEntries != 0 {
		c.MaxEntries = raw.MaxEntries
	}
	return nil
}

// AgentConfig defines conversation loop limits.
type AgentConfig struct {
	// MaxIterations bounds how many model turns with tool calls a single
	// question may consume before a text-only answer is forced.
	MaxIterations int `yaml:"max_iterations"`
	// SideChannelURL points the loop at the tool side channel. Empty means
	// the server's own /mcp endpoint.
	SideChannelURL string `yaml:"side_channel_url"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			Provider: "anthropic",
			Name:     "claude-sonnet-4-20250514",
		},
		Ollama: OllamaConfig{URL: "http://localhost:11434"},
		Cache: CacheConfig{
			TTL:        24 * time.Hour,
			MaxEntries: 50,
		},
		Agent: AgentConfig{MaxIterations: 10},
	}
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("model.provider is anthropic but anthropic.api_key is empty")
		}
	case "ollama":
		if c.Ollama.URL == "" {
			return fmt.Errorf("model.provider is ollama but ollama.url is empty")
		}
	default:
		return fmt.Errorf("unknown model.provider %q (valid: anthropic, ollama)", c.Model.Provider)
	}

	if c.Strava.ClientID == "" || c.Strava.ClientSecret == "" || c.Strava.RefreshToken == "" {
		return fmt.Errorf("strava.client_id, strava.client_secret, and strava.refresh_token are required")
	}
	return nil
}
