package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Remote describes the manager's remote daemon socket and the getconfig
// request sent over it.
type Remote struct {
	SocketPath     string `toml:"socket_path"`
	Component      string `toml:"component"`
	Command        string `toml:"command"`
	Section        string `toml:"section"`
	MaxFrameBytes  uint32 `toml:"max_frame_bytes"`
	ConnectTimeout int    `toml:"connect_timeout"` // seconds, 0 disables
	ReadTimeout    int    `toml:"read_timeout"`    // seconds, 0 blocks until the daemon answers
	WriteTimeout   int    `toml:"write_timeout"`   // seconds, 0 disables
}

// Retry contains the per-agent retry policy.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	DelayMillis int `toml:"delay_ms"`
}

// Agents controls how operator-supplied identifiers are normalized.
type Agents struct {
	// IDWidth zero-pads purely numeric identifiers ("3" -> "003") when set.
	// The default 0 sends identifiers as given.
	IDWidth int `toml:"id_width"`
}

// History contains configuration for the persisted outcome log.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for archeck.
//
// Configuration sections by subsystem:
//   - Paths: local state directory (run lock, history database)
//   - Remote: daemon socket, request grammar and I/O limits
//   - Retry: attempts and pause between attempts per agent
//   - Agents: identifier normalization
//   - History: SQLite outcome log
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Remote  Remote  `toml:"remote"`
	Retry   Retry   `toml:"retry"`
	Agents  Agents  `toml:"agents"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("archeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory used for the run lock and
// the history database.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	if c.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// LockPath is the flock file that serializes batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "archeck.lock")
}

// RetryDelay is the pause between a failed attempt and the next one.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelayMillis) * time.Millisecond
}

// ConnectTimeout returns the dial timeout (0 = none).
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Remote.ConnectTimeout) * time.Second
}

// ReadTimeout returns the per-receive deadline (0 = none).
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Remote.ReadTimeout) * time.Second
}

// WriteTimeout returns the per-send deadline (0 = none).
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Remote.WriteTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "archeck")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.local/state/archeck"
	}
	return filepath.Join(home, ".local", "state", "archeck")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
