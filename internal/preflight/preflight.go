package preflight

import (
	"context"

	"github.com/mranv/agentARChecker/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check for the given config, in display order. The
// dial check only runs when the socket itself looks usable.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckStateDir("State directory", cfg.Paths.StateDir),
	}

	socket := CheckSocket("Remote socket", cfg.Remote.SocketPath)
	results = append(results, socket)
	if socket.Passed {
		results = append(results, CheckDaemonAccepts(ctx, "Remote daemon", cfg))
	}
	return results
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
