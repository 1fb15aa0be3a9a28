// Package config loads, normalizes, and validates archeck configuration data.
//
// It supplies repository defaults (the remote daemon socket path, the
// com/getconfig/active-response request grammar, three attempts one second
// apart), expands user paths, reads TOML files, and honours the
// ARCHECK_SOCKET and ARCHECK_LOG_LEVEL environment overrides.
//
// Always obtain settings through this package so the CLI and the query driver
// agree on the endpoint and retry policy.
package config
