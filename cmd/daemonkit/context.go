package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"daemonkit/internal/config"
	"daemonkit/internal/daemon"
	"daemonkit/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath     string
	configExists   bool
	configExplicit bool
	configErr      error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
		c.configExplicit = path != ""
	})
	return c.config, c.configErr
}

// reexecArgs are the arguments every detach stage runs with. The config path
// is passed explicitly because later stages run from "/". A --config naming a
// missing file is forwarded too, so later stages keep its defaults instead of
// picking up a config from the search path.
func (c *commandContext) reexecArgs(command string) []string {
	args := []string{command}
	if c.configPath != "" && (c.configExists || c.configExplicit) {
		args = append(args, "--config", c.configPath)
	}
	return args
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	output := "stderr"
	if strings.TrimSpace(cfg.Logging.File) != "" {
		output = cfg.Logging.File
	}
	logger, err := logging.New(logging.Options{
		Format:      cfg.Logging.Format,
		Level:       cfg.Logging.Level,
		OutputPaths: []string{output},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// controller wires the configured daemon around the heartbeat service.
// command names the subcommand that detach stages re-run.
func (c *commandContext) controller(cmd *cobra.Command, command string) (*daemon.Controller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return nil, err
	}
	return daemon.New(newHeartbeatService(cfg.HeartbeatInterval(), logger), daemon.Options{
		PIDFile:      cfg.Daemon.PIDFile,
		Stdin:        cfg.Daemon.Stdin,
		Stdout:       cfg.Daemon.Stdout,
		Stderr:       cfg.Daemon.Stderr,
		PollInterval: cfg.StopPollInterval(),
		Timeout:      cfg.StopTimeout(),
		Args:         c.reexecArgs(command),
		Out:          cmd.OutOrStdout(),
		ErrOut:       cmd.ErrOrStderr(),
		Logger:       logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
