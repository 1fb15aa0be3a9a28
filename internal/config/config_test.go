package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/mranv/agentARChecker/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv(config.EnvSocketPath, "")
	t.Setenv(config.EnvLogLevel, "")
	return home
}

func TestLoadDefaultConfig(t *testing.T) {
	home := isolateEnv(t)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(home, ".config", "archeck", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Remote.SocketPath != "/var/ossec/queue/sockets/remote" {
		t.Fatalf("unexpected socket path: %q", cfg.Remote.SocketPath)
	}
	if cfg.Remote.Component != "com" || cfg.Remote.Command != "getconfig" || cfg.Remote.Section != "active-response" {
		t.Fatalf("unexpected request grammar: %+v", cfg.Remote)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.RetryDelay() != time.Second {
		t.Fatalf("expected 1s retry delay, got %s", cfg.RetryDelay())
	}
	if cfg.ReadTimeout() != 0 {
		t.Fatalf("expected blocking receive by default, got %s", cfg.ReadTimeout())
	}
	wantState := filepath.Join(home, ".local", "state", "archeck")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.History.Path != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.LockPath() != filepath.Join(wantState, "archeck.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(wantState); err != nil || !info.IsDir() {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "archeck.toml")

	type payload struct {
		Remote struct {
			SocketPath  string `toml:"socket_path"`
			ReadTimeout int    `toml:"read_timeout"`
		} `toml:"remote"`
		Retry struct {
			MaxAttempts int `toml:"max_attempts"`
			DelayMillis int `toml:"delay_ms"`
		} `toml:"retry"`
	}
	custom := payload{}
	custom.Remote.SocketPath = "/tmp/remote.sock"
	custom.Remote.ReadTimeout = 30
	custom.Retry.MaxAttempts = 5
	custom.Retry.DelayMillis = 250
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Remote.SocketPath != "/tmp/remote.sock" {
		t.Fatalf("expected socket override, got %q", cfg.Remote.SocketPath)
	}
	if cfg.ReadTimeout() != 30*time.Second {
		t.Fatalf("expected 30s read timeout, got %s", cfg.ReadTimeout())
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.RetryDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected retry policy: %+v", cfg.Retry)
	}
	if cfg.Remote.Command != "getconfig" {
		t.Fatalf("expected untouched defaults to survive, got %q", cfg.Remote.Command)
	}
}

func TestEnvOverridesSocketAndLevel(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.EnvSocketPath, "/run/custom/remote")
	t.Setenv(config.EnvLogLevel, "DEBUG")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Remote.SocketPath != "/run/custom/remote" {
		t.Errorf("expected socket from env, got %q", cfg.Remote.SocketPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level from env, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "archeck.toml")
	if err := os.WriteFile(configPath, []byte("[remote]\nsocket = \"/tmp/x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestCreateSample(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "/var/ossec/queue/sockets/remote") {
		t.Fatalf("sample config missing default socket: %s", contents)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to be found")
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Agents.IDWidth != 0 {
		t.Fatalf("sample drifted from defaults: %+v %+v", cfg.Retry, cfg.Agents)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode encoded config: %v", err)
	}
	if decoded.Remote != cfg.Remote {
		t.Fatalf("remote section mismatch: %+v vs %+v", decoded.Remote, cfg.Remote)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"relative socket":  func(c *config.Config) { c.Remote.SocketPath = "remote.sock" },
		"empty command":    func(c *config.Config) { c.Remote.Command = "" },
		"spaced section":   func(c *config.Config) { c.Remote.Section = "active response" },
		"zero attempts":    func(c *config.Config) { c.Retry.MaxAttempts = 0 },
		"negative delay":   func(c *config.Config) { c.Retry.DelayMillis = -1 },
		"negative timeout": func(c *config.Config) { c.Remote.ReadTimeout = -5 },
		"huge id width":    func(c *config.Config) { c.Agents.IDWidth = 64 },
		"bogus log level":  func(c *config.Config) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestDefaultKeepsAgentIDsUnpadded(t *testing.T) {
	cfg := config.Default()
	if cfg.Agents.IDWidth != 0 {
		t.Fatalf("default id_width = %d, want 0", cfg.Agents.IDWidth)
	}
}
