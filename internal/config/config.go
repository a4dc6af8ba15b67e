// Package config loads the service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	DatabasePath string `yaml:"database_path"`
	APIKey       string `yaml:"api_key"`
	SettingsURL  string `yaml:"settings_url"`  // where the browser lands after OAuth
	StateSecret  string `yaml:"state_secret"`  // HMAC key for the OAuth state blob

	Google struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"google"`

	Generator struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"generator"`

	Sync struct {
		IntervalMinutes int `yaml:"interval_minutes"`
	} `yaml:"sync"`

	Quota struct {
		MaxPerReply int `yaml:"max_per_reply"`
		MaxPerDay   int `yaml:"max_per_day"`
	} `yaml:"quota"`
}

// Load reads the YAML config at path (missing file is fine, defaults
// apply) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr:   "127.0.0.1:8090",
		DatabasePath: "reviewpilot.db",
		SettingsURL:  "/settings",
	}
	cfg.Sync.IntervalMinutes = 60

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	override(&cfg.ListenAddr, "REVIEWPILOT_LISTEN_ADDR")
	override(&cfg.DatabasePath, "REVIEWPILOT_DB_PATH")
	override(&cfg.APIKey, "REVIEWPILOT_API_KEY")
	override(&cfg.StateSecret, "REVIEWPILOT_STATE_SECRET")
	override(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	override(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	override(&cfg.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	override(&cfg.Generator.URL, "REVIEWPILOT_GENERATOR_URL")
	override(&cfg.Generator.APIKey, "REVIEWPILOT_GENERATOR_API_KEY")

	return cfg, nil
}

// Validate checks the settings the OAuth flow cannot run without.
func (c *Config) Validate() error {
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		return gbp.Errorf(gbp.KindConfigurationMissing, "google client_id and client_secret are required")
	}
	if c.StateSecret == "" {
		return gbp.Errorf(gbp.KindConfigurationMissing, "state_secret is required")
	}
	return nil
}

func override(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}
