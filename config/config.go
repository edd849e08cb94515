package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FileName is the settings file kept in the user's home directory
const FileName = ".wave-portal-config.json"

// Config represents the persisted UI settings
type Config struct {
	RPCURLs []RPCUrl `json:"rpc_urls"`
	Logger  bool     `json:"logger"`
}

// RPCUrl represents an RPC endpoint
type RPCUrl struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// Page identifies the screen shown by the TUI
type Page int

const (
	PagePortal Page = iota
	PageSettings
)

// DefaultPath returns the settings file path in the home directory
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, FileName)
}

// Load reads the config from the specified path.
// A missing or unreadable file yields an empty config.
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}

	return cfg
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ActiveRPC returns the URL of the active endpoint, or fallback when none is marked
func (c Config) ActiveRPC(fallback string) string {
	for _, r := range c.RPCURLs {
		if r.Active {
			return r.URL
		}
	}
	return fallback
}

// Activate marks the endpoint at idx as the only active one
func (c *Config) Activate(idx int) bool {
	if idx < 0 || idx >= len(c.RPCURLs) {
		return false
	}
	for i := range c.RPCURLs {
		c.RPCURLs[i].Active = i == idx
	}
	return true
}

// WithEnvRPC seeds the endpoint list from the environment when the file has none
func (c Config) WithEnvRPC(url string) Config {
	if len(c.RPCURLs) == 0 && url != "" {
		c.RPCURLs = []RPCUrl{{Name: "Default", URL: url, Active: true}}
	}
	return c
}
