package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"daemonkit/internal/logging"
	"daemonkit/internal/pidfile"
)

// DefaultPollInterval is the pause between termination signals sent by Stop.
const DefaultPollInterval = 100 * time.Millisecond

// Service is the body run inside the detached process. ctx is cancelled on the
// first SIGTERM or SIGINT; a body that returns then gets the pidfile cleanup,
// and one that keeps running is killed by the next signal. The returned
// value becomes the daemon's exit code.
type Service interface {
	Run(ctx context.Context) int
}

// ServiceFunc adapts a plain function to Service.
type ServiceFunc func(ctx context.Context) int

// Run calls f(ctx).
func (f ServiceFunc) Run(ctx context.Context) int { return f(ctx) }

// Options configures a Controller.
type Options struct {
	// PIDFile identifies the daemon instance. Required.
	PIDFile string

	// Redirection targets for the detached process. Empty means os.DevNull.
	Stdin  string
	Stdout string
	Stderr string

	// PollInterval separates termination signals in Stop. Zero means DefaultPollInterval.
	PollInterval time.Duration
	// Timeout bounds how long Stop keeps signaling. Zero waits until the process is gone.
	Timeout time.Duration

	// Args are passed to the re-executed binary at each detach stage.
	// Nil means os.Args[1:].
	Args []string

	// Out receives progress lines printed before the streams are redirected.
	// ErrOut receives diagnostics. They default to os.Stdout and os.Stderr.
	Out    io.Writer
	ErrOut io.Writer

	Logger *slog.Logger
}

// Controller starts, stops and restarts one daemon instance bound to a pidfile.
type Controller struct {
	service  Service
	pidPath  string
	lockPath string

	stdin  string
	stdout string
	stderr string

	pollInterval time.Duration
	timeout      time.Duration
	args         []string

	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	// process hooks, replaced in tests
	exit      func(code int)
	terminate func(pid int) error
	exited    func(pid int) bool
	sleep     func(d time.Duration)
	now       func() time.Time
}

// New constructs a controller for service.
func New(service Service, opts Options) (*Controller, error) {
	if service == nil {
		return nil, errors.New("daemon: service is required")
	}
	if strings.TrimSpace(opts.PIDFile) == "" {
		return nil, errors.New("daemon: pidfile path is required")
	}
	// The detached process runs from "/", so relative paths would drift.
	pidPath, err := filepath.Abs(opts.PIDFile)
	if err != nil {
		return nil, fmt.Errorf("daemon: resolve pidfile path: %w", err)
	}

	c := &Controller{
		service:      service,
		pidPath:      pidPath,
		lockPath:     pidPath + ".lock",
		stdin:        defaultString(opts.Stdin, os.DevNull),
		stdout:       defaultString(opts.Stdout, os.DevNull),
		stderr:       defaultString(opts.Stderr, os.DevNull),
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		args:         opts.Args,
		out:          opts.Out,
		errOut:       opts.ErrOut,
		logger:       logging.NewComponentLogger(opts.Logger, "daemon"),
		exit:         os.Exit,
		terminate:    terminateProcess,
		exited:       isZombie,
		sleep:        time.Sleep,
		now:          time.Now,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.args == nil {
		c.args = append([]string(nil), os.Args[1:]...)
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.errOut == nil {
		c.errOut = os.Stderr
	}
	for _, target := range []*string{&c.stdin, &c.stdout, &c.stderr} {
		if *target, err = filepath.Abs(*target); err != nil {
			return nil, fmt.Errorf("daemon: resolve redirection target: %w", err)
		}
	}
	return c, nil
}

// PIDFile returns the absolute pidfile path.
func (c *Controller) PIDFile() string {
	return c.pidPath
}

// Start daemonizes the current process and runs the service. The foreground
// process exits during detachment, so a successful Start only returns inside
// the detached daemon, with the service's result. It returns 1 when an
// instance is already running.
func (c *Controller) Start() int {
	if currentStage() == stageForeground {
		if code, ok := c.checkNotRunning(); !ok {
			return code
		}
	}

	ctx, cleanup, err := c.daemonize()
	if err != nil {
		fmt.Fprintln(c.errOut, err)
		return 1
	}
	defer cleanup()

	c.logger.Info("daemon running",
		logging.Int("pid", os.Getpid()),
		logging.String("pidfile", c.pidPath),
	)
	code := c.service.Run(ctx)
	c.logger.Info("daemon exiting", logging.Int("exit_code", code))
	return code
}

func (c *Controller) checkNotRunning() (int, bool) {
	pid, err := pidfile.Read(c.pidPath)
	if err == nil {
		fmt.Fprintf(c.errOut, "pidfile %s already exists with pid %d. Daemon already running?\n", c.pidPath, pid)
		return 1, false
	}
	if !errors.Is(err, pidfile.ErrNotExist) {
		c.logger.Debug("ignoring unreadable pidfile", logging.Error(err))
	}

	held, err := lockHeld(c.lockPath)
	if err != nil {
		fmt.Fprintf(c.errOut, "check daemon lock %s: %v\n", c.lockPath, err)
		return 1, false
	}
	if held {
		fmt.Fprintf(c.errOut, "daemon start already in progress (lock %s)\n", c.lockPath)
		return 1, false
	}
	return 0, true
}

// Stop terminates the daemon recorded in the pidfile. A missing or
// unparsable pidfile is reported and treated as already stopped.
func (c *Controller) Stop() int {
	pid, err := pidfile.Read(c.pidPath)
	if err != nil {
		fmt.Fprintf(c.errOut, "pidfile %s does not exist. Daemon not running?\n", c.pidPath)
		return 0
	}
	if pid == os.Getpid() {
		fmt.Fprintf(c.errOut, "refusing to signal current process (pid %d)\n", pid)
		return 1
	}

	c.logger.Info("stopping daemon", logging.Int("pid", pid), logging.String("pidfile", c.pidPath))
	started := c.now()
	for attempt := 1; ; attempt++ {
		err := c.terminate(pid)
		if isNoSuchProcess(err) {
			break
		}
		if err != nil {
			fmt.Fprintf(c.errOut, "signal daemon (pid %d): %v\n", pid, err)
			return 1
		}
		c.sleep(c.pollInterval)
		if c.exited(pid) {
			c.logger.Debug("daemon exited but was not reaped", logging.Int("pid", pid))
			break
		}
		if c.timeout > 0 && c.now().Sub(started) >= c.timeout {
			fmt.Fprintf(c.errOut, "daemon (pid %d) did not exit within %s\n", pid, c.timeout)
			return 1
		}
		if attempt%50 == 0 {
			c.logger.Debug("daemon still running", logging.Int("pid", pid), logging.Int("attempts", attempt))
		}
	}

	if err := pidfile.Remove(c.pidPath); err != nil {
		fmt.Fprintln(c.errOut, err)
		return 1
	}
	c.logger.Info("daemon stopped", logging.Int("pid", pid))
	return 0
}

// Restart stops the daemon and starts it again. A failed stop is returned
// without attempting the start.
func (c *Controller) Restart() int {
	// Re-executed detach stages carry the restart arguments too; they only
	// need to finish starting.
	if currentStage() != stageForeground {
		return c.Start()
	}
	if code := c.Stop(); code != 0 {
		return code
	}
	return c.Start()
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
