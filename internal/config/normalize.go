package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeDaemon() error {
	c.Daemon.PIDFile = strings.TrimSpace(c.Daemon.PIDFile)
	if c.Daemon.PIDFile == "" {
		if value, ok := os.LookupEnv(EnvPIDFile); ok && strings.TrimSpace(value) != "" {
			c.Daemon.PIDFile = strings.TrimSpace(value)
		} else {
			c.Daemon.PIDFile = defaultPIDFile
		}
	}

	var err error
	if c.Daemon.PIDFile, err = expandPath(c.Daemon.PIDFile); err != nil {
		return fmt.Errorf("daemon.pidfile: %w", err)
	}
	for _, target := range []struct {
		key   string
		value *string
	}{
		{key: "daemon.stdin", value: &c.Daemon.Stdin},
		{key: "daemon.stdout", value: &c.Daemon.Stdout},
		{key: "daemon.stderr", value: &c.Daemon.Stderr},
	} {
		trimmed := strings.TrimSpace(*target.value)
		if trimmed == "" {
			*target.value = os.DevNull
			continue
		}
		if *target.value, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("%s: %w", target.key, err)
		}
	}
	if c.Daemon.StopPollIntervalMS == 0 {
		c.Daemon.StopPollIntervalMS = defaultStopPollIntervalMS
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		expanded, err := expandPath(file)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}
