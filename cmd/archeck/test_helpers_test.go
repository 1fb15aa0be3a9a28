package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mranv/agentARChecker/internal/config"
	"github.com/mranv/agentARChecker/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	remote     *testsupport.FakeRemote
	configPath string
}

// setupCLITestEnv isolates HOME and the env overrides, starts a fake remote
// daemon when handler is non-nil and writes a config pointing at it.
func setupCLITestEnv(t *testing.T, handler testsupport.Handler, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv(config.EnvSocketPath, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv("NO_COLOR", "1")

	env := &cliTestEnv{}
	var cfgOpts []testsupport.ConfigOption
	if handler != nil {
		env.remote = testsupport.StartFakeRemote(t, handler)
		cfgOpts = append(cfgOpts, testsupport.WithSocketPath(env.remote.Path()))
	}
	cfgOpts = append(cfgOpts, opts...)
	cfgOpts = append(cfgOpts, testsupport.WithConfigFile(&env.configPath))
	env.cfg = testsupport.NewConfig(t, cfgOpts...)
	return env
}

func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append(args, "--config", e.configPath), stdin)
}

func runCLI(t *testing.T, args []string, stdin string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func requireNotContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Fatalf("expected output not to contain %q, got:\n%s", needle, haystack)
	}
}

// answerByAgent replies "ok" with a body naming the agent from the request.
func answerByAgent() testsupport.Handler {
	return func(_ int, request []byte) testsupport.Reply {
		id, _, _ := strings.Cut(string(request), " ")
		return testsupport.Text(`ok {"agent":"` + id + `","active-response":[]}`)
	}
}
