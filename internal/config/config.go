// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRemoteModel is used when no model is configured.
const DefaultRemoteModel = "gpt-4o-mini"

// DefaultRemoteTimeout bounds one remote classification round trip.
const DefaultRemoteTimeout = 5 * time.Second

// Config represents the configuration for bigocheck
type Config struct {
	Version string `yaml:"version" json:"version"`

	// Analysis settings
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Remote classifier settings
	Remote RemoteConfig `yaml:"remote" json:"remote"`

	// File patterns
	Files FilesConfig `yaml:"files" json:"files"`
}

type AnalysisConfig struct {
	// Parallel per-function classification
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`

	// Max source size in KB accepted by the parser
	MaxFileSize int `yaml:"max_file_size" json:"max_file_size"`
}

type OutputConfig struct {
	// Default output format
	Format string `yaml:"format" json:"format"`

	// Colorized output
	Colors bool `yaml:"colors" json:"colors"`

	// Verbosity level
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Output file path (optional)
	OutputFile string `yaml:"output_file,omitempty" json:"output_file,omitempty"`
}

type RemoteConfig struct {
	// Attempt remote classification before the local heuristic. The
	// credential must also be present; absence means heuristic-only
	// mode, not an error.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Model identifier sent to the inference service
	Model string `yaml:"model" json:"model"`

	// Bounded wait per round trip
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// Environment variable holding the credential
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// Override endpoint (local gateways, tests)
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

type FilesConfig struct {
	// Include patterns
	Include []string `yaml:"include" json:"include"`

	// Exclude patterns
	Exclude []string `yaml:"exclude" json:"exclude"`

	// Whether to follow symlinks
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`
}

func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Analysis: AnalysisConfig{
			MaxWorkers:  4,
			MaxFileSize: 1024, // 1MB
		},
		Output: OutputConfig{
			Format:  "console",
			Colors:  true,
			Verbose: false,
		},
		Remote: RemoteConfig{
			Enabled:        true,
			Model:          DefaultRemoteModel,
			TimeoutSeconds: int(DefaultRemoteTimeout / time.Second),
			APIKeyEnv:      "OPENAI_API_KEY",
		},
		Files: FilesConfig{
			Include:        []string{"**/*.py"},
			Exclude:        []string{"venv/**", ".venv/**", ".git/**", "__pycache__/**", "node_modules/**"},
			FollowSymlinks: false,
		},
	}
}

// LoadConfig loads configuration from file or returns default
func LoadConfig(configPath string) (*Config, error) {
	// If no config path provided, look for default config files
	if configPath == "" {
		configPath = findConfigFile()
	}

	// If still no config found, return default
	if configPath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig() // Start with defaults

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// findConfigFile looks for config files in common locations
func findConfigFile() string {
	possiblePaths := []string{
		".bigocheck.yml",
		".bigocheck.yaml",
		"bigocheck.yml",
		"bigocheck.yaml",
		".config/bigocheck.yml",
		".config/bigocheck.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validFormats := []string{"console", "json"}
	formatValid := false
	for _, format := range validFormats {
		if c.Output.Format == format {
			formatValid = true
			break
		}
	}
	if !formatValid {
		return fmt.Errorf("invalid output format: %s (valid: %v)", c.Output.Format, validFormats)
	}

	if c.Analysis.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1")
	}

	if c.Analysis.MaxFileSize < 1 {
		return fmt.Errorf("max_file_size must be at least 1 KB")
	}

	if c.Remote.Enabled {
		if c.Remote.TimeoutSeconds < 1 {
			return fmt.Errorf("remote timeout_seconds must be at least 1")
		}
		if c.Remote.APIKeyEnv == "" {
			return fmt.Errorf("remote api_key_env must not be empty")
		}
	}

	return nil
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateConfig creates a sample configuration file
func GenerateConfig(configPath string) error {
	config := DefaultConfig()
	return config.SaveConfig(configPath)
}
