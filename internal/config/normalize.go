package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRemote(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() error {
	if value, ok := os.LookupEnv(EnvSocketPath); ok && strings.TrimSpace(value) != "" {
		c.Remote.SocketPath = value
	}
	c.Remote.SocketPath = strings.TrimSpace(c.Remote.SocketPath)
	if c.Remote.SocketPath == "" {
		c.Remote.SocketPath = defaultSocketPath
	}
	var err error
	if c.Remote.SocketPath, err = expandPath(c.Remote.SocketPath); err != nil {
		return fmt.Errorf("remote.socket_path: %w", err)
	}
	c.Remote.Component = strings.TrimSpace(c.Remote.Component)
	c.Remote.Command = strings.TrimSpace(c.Remote.Command)
	c.Remote.Section = strings.TrimSpace(c.Remote.Section)
	if c.Remote.MaxFrameBytes == 0 {
		c.Remote.MaxFrameBytes = defaultMaxFrameBytes
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
