package config

const (
	defaultConfigPath         = "~/.config/daemonkit/config.toml"
	projectConfigName         = "daemonkit.toml"
	defaultPIDFile            = "/tmp/daemon-example.pid"
	defaultStopPollIntervalMS = 100
	defaultHeartbeatSeconds   = 1
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	// EnvPIDFile overrides the pidfile when the config leaves it empty.
	EnvPIDFile = "DAEMONKIT_PIDFILE"
)

// Default returns a Config populated with repository defaults. The pidfile
// is left empty so that normalization can apply the environment override.
func Default() Config {
	return Config{
		Daemon: Daemon{
			StopPollIntervalMS: defaultStopPollIntervalMS,
		},
		Service: Service{
			HeartbeatSeconds: defaultHeartbeatSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
