package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mranv/agentARChecker/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The socket path points at a fresh short directory with nothing listening,
// and the retry delay is shortened so retry paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.Remote.SocketPath = filepath.Join(SocketDir(t), "remote")
	cfgVal.Remote.ConnectTimeout = 2
	cfgVal.Retry.DelayMillis = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSocketPath points the config at an existing endpoint, usually a FakeRemote.
func WithSocketPath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.SocketPath = path
	}
}

// WithRetry overrides the attempt budget and the delay between attempts.
func WithRetry(attempts, delayMillis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retry.MaxAttempts = attempts
		b.cfg.Retry.DelayMillis = delayMillis
	}
}

// WithReadTimeout bounds how long a receive may block, in seconds.
func WithReadTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.ReadTimeout = seconds
	}
}

// WithIDWidth turns on zero-padding of numeric agent IDs.
func WithIDWidth(width int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Agents.IDWidth = width
	}
}

// WithHistory enables run history recording inside the test state dir.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
	}
}

// WithConfigFile writes the generated config to disk and records its path in
// *path so CLI tests can pass it via --config. Apply it last.
func WithConfigFile(path *string) ConfigOption {
	return func(b *configBuilder) {
		data, err := b.cfg.Encode()
		if err != nil {
			b.t.Fatalf("encode config: %v", err)
		}
		target := filepath.Join(b.baseDir, "archeck.toml")
		if err := os.WriteFile(target, data, 0o644); err != nil {
			b.t.Fatalf("write config: %v", err)
		}
		*path = target
	}
}

// SocketDir returns a short temp directory for Unix sockets. t.TempDir paths
// embed the test name and can exceed the sun_path limit.
func SocketDir(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "arq")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}
