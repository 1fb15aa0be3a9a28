package config

const (
	defaultConfigPath     = "~/.config/archeck/config.toml"
	defaultSocketPath     = "/var/ossec/queue/sockets/remote"
	defaultComponent      = "com"
	defaultCommand        = "getconfig"
	defaultSection        = "active-response"
	defaultMaxFrameBytes  = 64 * 1024 * 1024
	defaultConnectTimeout = 5
	defaultMaxAttempts    = 3
	defaultRetryDelayMS   = 1000
	defaultIDWidth        = 0
	defaultHistoryFile    = "history.db"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	// EnvSocketPath overrides remote.socket_path.
	EnvSocketPath = "ARCHECK_SOCKET"
	// EnvLogLevel overrides logging.level.
	EnvLogLevel = "ARCHECK_LOG_LEVEL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir(),
		},
		Remote: Remote{
			SocketPath:     defaultSocketPath,
			Component:      defaultComponent,
			Command:        defaultCommand,
			Section:        defaultSection,
			MaxFrameBytes:  defaultMaxFrameBytes,
			ConnectTimeout: defaultConnectTimeout,
		},
		Retry: Retry{
			MaxAttempts: defaultMaxAttempts,
			DelayMillis: defaultRetryDelayMS,
		},
		Agents: Agents{
			IDWidth: defaultIDWidth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
