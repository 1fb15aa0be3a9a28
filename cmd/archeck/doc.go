// Package main hosts the archeck CLI entrypoint and command graph.
//
// archeck asks the manager's remote daemon for the active-response
// configuration of one or more agents. Identifiers come from positional
// arguments, a file, or stdin (one per line, blank lines ignored). Progress
// and results go to stdout, per-agent errors and diagnostics to stderr, and
// the process exits 1 when any agent could not be queried.
//
// Besides the query itself the command tree offers config scaffolding, a
// preflight check of the daemon socket, and a view of past runs recorded in
// the history database. Keep the heavy lifting in internal packages; commands
// here only wire configuration, logging and rendering together.
package main
