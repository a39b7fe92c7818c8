package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"daemonkit/internal/logging"
	"daemonkit/internal/pidfile"
)

// stageEnv marks a re-executed process with its position in the double
// detach sequence. Go cannot fork a running runtime, so each fork of the
// classic sequence is a fresh exec of the same binary.
const stageEnv = "DAEMONKIT_DETACH_STAGE"

type detachStage int

const (
	stageForeground detachStage = iota
	stageSession
	stageDetached
)

var errStageExited = errors.New("daemon: detach stage exited")

func currentStage() detachStage {
	switch strings.TrimSpace(os.Getenv(stageEnv)) {
	case strconv.Itoa(int(stageSession)):
		return stageSession
	case strconv.Itoa(int(stageDetached)):
		return stageDetached
	default:
		return stageForeground
	}
}

// daemonize walks the current process through its detach stage. The
// foreground and session stages exit; only the detached stage returns.
func (c *Controller) daemonize() (context.Context, func(), error) {
	switch currentStage() {
	case stageForeground:
		c.reexec(stageSession, "fork #1 failed", "First parent exiting...")
		return nil, nil, errStageExited
	case stageSession:
		if err := enterSession(); err != nil {
			fmt.Fprintf(c.errOut, "detach from session: %v\n", err)
			c.exit(1)
			return nil, nil, errStageExited
		}
		c.reexec(stageDetached, "fork #2 failed", "Second parent exiting...")
		return nil, nil, errStageExited
	default:
		return c.detach()
	}
}

func (c *Controller) reexec(next detachStage, failure, progress string) {
	if err := startStage(next, c.args); err != nil {
		fmt.Fprintf(c.errOut, "%s: %v\n", failure, err)
		c.flush()
		c.exit(1)
		return
	}
	fmt.Fprintln(c.out, progress)
	c.flush()
	c.exit(0)
}

func startStage(next detachStage, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	argv0 := exe
	if len(os.Args) > 0 && os.Args[0] != "" {
		argv0 = os.Args[0]
	}
	proc, err := os.StartProcess(exe, append([]string{argv0}, args...), &os.ProcAttr{
		Env:   stageEnviron(os.Environ(), next),
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	if err != nil {
		return err
	}
	return proc.Release()
}

func stageEnviron(environ []string, next detachStage) []string {
	env := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		if strings.HasPrefix(kv, stageEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, stageEnv+"="+strconv.Itoa(int(next)))
}

// detach finishes the sequence in the grandchild: it takes the instance
// lock, redirects the standard streams and records the pidfile. The returned
// cleanup removes the pidfile and must run on every exit path.
func (c *Controller) detach() (context.Context, func(), error) {
	_ = os.Unsetenv(stageEnv)

	lock := flock.New(c.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire daemon lock %s: %w", c.lockPath, err)
	}
	if !locked {
		return nil, nil, fmt.Errorf("daemon lock %s is held by another instance. Daemon already running?", c.lockPath)
	}

	pid := os.Getpid()
	fmt.Fprintf(c.out, "Successfully double-forked with pid %d. Now detaching...\n", pid)
	c.flush()
	if err := redirectStdio(c.stdin, c.stdout, c.stderr); err != nil {
		_ = lock.Unlock()
		return nil, nil, fmt.Errorf("redirect standard streams: %w", err)
	}

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	// Only the first signal is caught. Later ones take the default action, so
	// a body that never watches ctx still dies on Stop's next attempt.
	context.AfterFunc(ctx, stopSignals)
	cleanup := func() {
		if err := pidfile.Remove(c.pidPath); err != nil {
			c.logger.Warn("pidfile cleanup failed", logging.Error(err))
		}
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		stopSignals()
	}
	if err := pidfile.Write(c.pidPath, pid); err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctx, cleanup, nil
}

// lockHeld reports whether a detached instance currently holds the lock.
func lockHeld(path string) (bool, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return false, err
	}
	if !locked {
		return true, nil
	}
	return false, lock.Unlock()
}

func (c *Controller) flush() {
	for _, w := range []any{c.out, c.errOut} {
		switch f := w.(type) {
		case interface{ Flush() error }:
			_ = f.Flush()
		case *os.File:
			_ = f.Sync()
		}
	}
}
