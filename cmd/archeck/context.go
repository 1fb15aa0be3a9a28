package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mranv/agentARChecker/internal/config"
	"github.com/mranv/agentARChecker/internal/logging"
)

type commandContext struct {
	socketFlag   *string
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(socketFlag, configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		socketFlag:   socketFlag,
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the config once and layers the --socket and
// --log-level flags over it.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if socket := flagValue(c.socketFlag); socket != "" {
			abs, err := filepath.Abs(socket)
			if err != nil {
				c.configErr = fmt.Errorf("resolve --socket: %w", err)
				return
			}
			cfg.Remote.SocketPath = abs
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	return flagValue(c.configFlag)
}

// logger builds a logger writing to the command's stderr.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, cmd.ErrOrStderr())
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
