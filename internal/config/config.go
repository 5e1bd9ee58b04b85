// Package config handles outpost configuration and store-root resolution.
//
// The store root is a directory owned by outpost (default ~/.outpost). It
// holds a config.yaml with tunables, the per-actor session hierarchy, the
// current-session pointer, the shared promotion namespace and the query
// index. Resolution order for the root: explicit override, OUTPOST_ROOT,
// then the home default. Settings resolve as: built-in defaults, then
// config.yaml, then OUTPOST_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the settings filename inside the store root.
	ConfigFile = "config.yaml"
	// DefaultRootName is the store directory created under $HOME.
	DefaultRootName = ".outpost"
	// RootEnv overrides the store root location.
	RootEnv = "OUTPOST_ROOT"
)

const defaultConfigYAML = `# outpost configuration
version: 1

# Logging verbosity: debug | info | warn | error
log_level: info

# Retention windows per policy. A session's expiry date is its creation
# time plus the window for its policy.
retention:
  project: 4380h   # ~6 months
  sprint: 504h     # 3 weeks
  temporary: 720h  # 30 days

# Bounded retry count for session-key collision regeneration.
key_retry_limit: 5
`

// Retention holds the expiry window for each retention policy.
type Retention struct {
	Project   time.Duration `yaml:"project" envconfig:"OUTPOST_RETENTION_PROJECT"`
	Sprint    time.Duration `yaml:"sprint" envconfig:"OUTPOST_RETENTION_SPRINT"`
	Temporary time.Duration `yaml:"temporary" envconfig:"OUTPOST_RETENTION_TEMPORARY"`
}

// Config holds all outpost settings.
type Config struct {
	Version       int       `yaml:"version" ignored:"true"`
	LogLevel      string    `yaml:"log_level" envconfig:"OUTPOST_LOG_LEVEL"`
	Retention     Retention `yaml:"retention"`
	KeyRetryLimit int       `yaml:"key_retry_limit" envconfig:"OUTPOST_KEY_RETRY_LIMIT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version:  1,
		LogLevel: "info",
		Retention: Retention{
			Project:   4380 * time.Hour,
			Sprint:    504 * time.Hour,
			Temporary: 720 * time.Hour,
		},
		KeyRetryLimit: 5,
	}
}

// ResolveRoot determines the store root directory. An explicit non-empty
// override wins, then OUTPOST_ROOT, then ~/.outpost.
func ResolveRoot(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv(RootEnv); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DefaultRootName), nil
}

// Load reads config.yaml from the store root, layering it over the
// defaults and applying environment overrides. A missing config.yaml is
// not an error; the defaults apply.
func Load(root string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", ConfigFile, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", ConfigFile, err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}

// WriteDefault creates the store root (if needed) and writes the default
// config.yaml. It refuses to overwrite an existing config file.
func WriteDefault(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating store root: %w", err)
	}

	path := filepath.Join(root, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists in %s", ConfigFile, root)
	}

	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ConfigFile, err)
	}
	return nil
}

// Window returns the retention window for a named policy, or an error for
// an unknown policy name.
func (r Retention) Window(policy string) (time.Duration, error) {
	switch policy {
	case "project":
		return r.Project, nil
	case "sprint":
		return r.Sprint, nil
	case "temporary":
		return r.Temporary, nil
	default:
		return 0, fmt.Errorf("unknown retention policy %q: must be one of: project, sprint, temporary", policy)
	}
}
