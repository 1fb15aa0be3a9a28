package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateAgents(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRemote() error {
	if strings.TrimSpace(c.Remote.SocketPath) == "" {
		return errors.New("remote.socket_path must be set")
	}
	if !filepath.IsAbs(c.Remote.SocketPath) {
		return fmt.Errorf("remote.socket_path must be absolute, got %q", c.Remote.SocketPath)
	}
	for key, value := range map[string]string{
		"remote.component": c.Remote.Component,
		"remote.command":   c.Remote.Command,
		"remote.section":   c.Remote.Section,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%s must be a single token, got %q", key, value)
		}
	}
	if err := ensureNonNegativeMap(map[string]int{
		"remote.connect_timeout": c.Remote.ConnectTimeout,
		"remote.read_timeout":    c.Remote.ReadTimeout,
		"remote.write_timeout":   c.Remote.WriteTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.DelayMillis < 0 {
		return errors.New("retry.delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateAgents() error {
	if c.Agents.IDWidth < 0 || c.Agents.IDWidth > 16 {
		return errors.New("agents.id_width must be between 0 and 16")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
