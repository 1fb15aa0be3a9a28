// Package preflight provides readiness checks for the remote daemon socket
// and the state directory archeck depends on.
//
// The CLI "archeck preflight" command runs RunAll and renders one row per
// check. Checks never send a request to the daemon; the deepest one opens a
// connection and closes it again.
package preflight
