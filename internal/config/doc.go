// Package config loads, normalizes, and validates daemonkit configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DAEMONKIT_PIDFILE environment
// fallback. Every path handed to the daemon is absolute, because the detached
// process changes its working directory to "/".
package config
