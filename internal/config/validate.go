package config

import (
	"errors"
	"fmt"
	"os"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if c.Service.HeartbeatSeconds <= 0 {
		return errors.New("service.heartbeat_seconds must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateDaemon() error {
	if c.Daemon.PIDFile == "" {
		return errors.New("daemon.pidfile must be set")
	}
	if info, err := os.Stat(c.Daemon.PIDFile); err == nil && info.IsDir() {
		return fmt.Errorf("daemon.pidfile %q is a directory", c.Daemon.PIDFile)
	}
	for key, target := range map[string]string{
		"daemon.stdin":  c.Daemon.Stdin,
		"daemon.stdout": c.Daemon.Stdout,
		"daemon.stderr": c.Daemon.Stderr,
	} {
		if target == c.Daemon.PIDFile {
			return fmt.Errorf("%s must not point at the pidfile", key)
		}
	}
	if c.Daemon.StopPollIntervalMS < 0 {
		return errors.New("daemon.stop_poll_interval_ms must be positive")
	}
	if c.Daemon.StopTimeoutSeconds < 0 {
		return errors.New("daemon.stop_timeout_seconds must be zero (wait forever) or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
