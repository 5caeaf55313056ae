package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sproutops/hadeploy/internal/safety"
)

// Config is the top-level configuration
type Config struct {
	Target    TargetConfig  `yaml:"target"`
	Artifacts []Artifact    `yaml:"artifacts"`
	API       APIConfig     `yaml:"api"`
	Staging   StagingConfig `yaml:"staging"`
	History   HistoryConfig `yaml:"history"`
}

// TargetConfig identifies the remote Home Assistant host
type TargetConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	User           string   `yaml:"user"`
	KeyPath        string   `yaml:"key_path"`
	KnownHosts     string   `yaml:"known_hosts"`
	StrictHostKey  bool     `yaml:"strict_host_key"`
	Sudo           bool     `yaml:"sudo"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
}

// Duration wraps time.Duration so YAML configs can use "30s" style values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Artifact describes one publishable unit: a local file or directory tree
// and its fixed remote destination.
type Artifact struct {
	Name       string `yaml:"name"`
	LocalPath  string `yaml:"local_path"`
	RemotePath string `yaml:"remote_path"`
	Backup     bool   `yaml:"backup"`
}

// APIConfig holds Home Assistant REST API settings
type APIConfig struct {
	EnvFile string `yaml:"env_file"`
	Restart bool   `yaml:"restart"`
}

// StagingConfig holds remote staging settings
type StagingConfig struct {
	RemoteDir string `yaml:"remote_dir"`
}

// HistoryConfig holds publish-history settings
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// Addr returns the host:port dial target.
func (t TargetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Port:           22,
			Sudo:           true,
			StrictHostKey:  false,
			ConnectTimeout: Duration(30 * time.Second),
		},
		API: APIConfig{
			EnvFile: ".env",
			Restart: true,
		},
		Staging: StagingConfig{
			RemoteDir: ".hadeploy/staging",
		},
		History: HistoryConfig{
			DBPath: "",
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"hadeploy.yaml",
		"/etc/hadeploy/hadeploy.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "hadeploy", "hadeploy.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// Validate checks cross-field invariants: unique artifact names, non-empty
// local paths, and absolute remote destinations.
func (c *Config) Validate() error {
	if c.Target.Host == "" {
		return fmt.Errorf("target.host is required")
	}
	if c.Target.User == "" {
		return fmt.Errorf("target.user is required")
	}
	if c.Target.Port <= 0 || c.Target.Port > 65535 {
		return fmt.Errorf("target.port out of range: %d", c.Target.Port)
	}

	seen := make(map[string]bool, len(c.Artifacts))
	for i, a := range c.Artifacts {
		if a.Name == "" {
			return fmt.Errorf("artifact %d: name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate artifact name: %q", a.Name)
		}
		seen[a.Name] = true

		if a.LocalPath == "" {
			return fmt.Errorf("artifact %q: local_path is required", a.Name)
		}
		if _, err := safety.CleanRemotePath(a.RemotePath); err != nil {
			return fmt.Errorf("artifact %q: %w", a.Name, err)
		}
	}

	return nil
}

// FindArtifact returns the artifact with the given name.
func (c *Config) FindArtifact(name string) (*Artifact, bool) {
	for i := range c.Artifacts {
		if c.Artifacts[i].Name == name {
			return &c.Artifacts[i], true
		}
	}
	return nil, false
}

// ArtifactNames returns the configured artifact names in declaration order.
func (c *Config) ArtifactNames() []string {
	names := make([]string, 0, len(c.Artifacts))
	for _, a := range c.Artifacts {
		names = append(names, a.Name)
	}
	return names
}

// ExpandUser replaces a leading ~ with the current user's home directory.
// Key and known_hosts paths are commonly written with ~ in configs.
func ExpandUser(p string) string {
	if p == "~" || len(p) >= 2 && p[0] == '~' && p[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
