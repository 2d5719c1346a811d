package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Cloud backend kinds. An empty backend runs the planner local-only.
const (
	BackendSupabase  = "supabase"
	BackendFirestore = "firestore"
)

// SupabaseConfig holds the settings for the Supabase backend
// (PostgREST storage plus GoTrue authentication).
type SupabaseConfig struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co.
	URL string `mapstructure:"url" yaml:"url"`

	// AnonKey is the public API key sent with every request.
	AnonKey string `mapstructure:"anon_key" yaml:"anon_key"`
}

// FirestoreConfig holds the settings for the Firebase backend
// (Firestore REST storage plus Identity Toolkit authentication).
type FirestoreConfig struct {
	// ProjectID is the Firebase project identifier.
	ProjectID string `mapstructure:"project_id" yaml:"project_id"`

	// APIKey is the web API key used for Identity Toolkit calls.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// AIConfig holds settings for the task suggestion integration.
type AIConfig struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// Backend selects the cloud store: "supabase", "firestore", or
	// empty for local-only operation.
	Backend string `mapstructure:"backend" yaml:"backend"`

	// DataDir is where the local database lives. Defaults to the
	// config directory.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	Supabase  SupabaseConfig  `mapstructure:"supabase" yaml:"supabase"`
	Firestore FirestoreConfig `mapstructure:"firestore" yaml:"firestore"`
	AI        AIConfig        `mapstructure:"ai" yaml:"ai"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/weekplanner/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "weekplanner", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DataDir: filepath.Dir(DefaultConfigPath()),
		AI: AIConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-5-mini",
			MaxTokens: 1024,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("data_dir", filepath.Dir(DefaultConfigPath()))
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-5-mini")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("display.theme", "default")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("data_dir", cfg.DataDir)
	v.Set("supabase", cfg.Supabase)
	v.Set("firestore", cfg.Firestore)
	v.Set("ai", cfg.AI)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
