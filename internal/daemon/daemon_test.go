package daemon

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"daemonkit/internal/pidfile"
)

var idleService = ServiceFunc(func(ctx context.Context) int {
	<-ctx.Done()
	return 0
})

type testController struct {
	*Controller
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	signals []int
	sleeps  int
}

func newTestController(t *testing.T, opts Options) *testController {
	t.Helper()
	t.Setenv(stageEnv, "")
	if opts.PIDFile == "" {
		opts.PIDFile = filepath.Join(t.TempDir(), "d.pid")
	}
	tc := &testController{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	opts.Out = tc.stdout
	opts.ErrOut = tc.stderr
	ctl, err := New(idleService, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctl.exit = func(code int) { t.Fatalf("unexpected exit(%d) during test", code) }
	ctl.exited = func(int) bool { return false }
	ctl.sleep = func(time.Duration) { tc.sleeps++ }
	tc.Controller = ctl
	return tc
}

// killSequence makes terminate return each error in turn, then ESRCH.
func (tc *testController) killSequence(errs ...error) {
	tc.terminate = func(pid int) error {
		tc.signals = append(tc.signals, pid)
		if len(errs) == 0 {
			return syscall.ESRCH
		}
		err := errs[0]
		errs = errs[1:]
		return err
	}
}

func TestNewValidatesInput(t *testing.T) {
	if _, err := New(nil, Options{PIDFile: "/tmp/d.pid"}); err == nil {
		t.Fatal("expected error for nil service")
	}
	if _, err := New(idleService, Options{PIDFile: "  "}); err == nil {
		t.Fatal("expected error for empty pidfile")
	}
}

func TestNewDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	ctl, err := New(idleService, Options{PIDFile: "relative.pid"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !filepath.IsAbs(ctl.PIDFile()) {
		t.Fatalf("expected absolute pidfile path, got %q", ctl.PIDFile())
	}
	if ctl.lockPath != ctl.PIDFile()+".lock" {
		t.Fatalf("unexpected lock path %q", ctl.lockPath)
	}
	for _, target := range []string{ctl.stdin, ctl.stdout, ctl.stderr} {
		if target != os.DevNull {
			t.Fatalf("expected redirection target %s, got %q", os.DevNull, target)
		}
	}
	if ctl.pollInterval != DefaultPollInterval {
		t.Fatalf("unexpected poll interval %s", ctl.pollInterval)
	}
	if ctl.timeout != 0 {
		t.Fatalf("expected unbounded stop, got %s", ctl.timeout)
	}
}

func TestStartRefusesWhenPIDFileExists(t *testing.T) {
	tc := newTestController(t, Options{})
	if err := pidfile.Write(tc.PIDFile(), 4242); err != nil {
		t.Fatal(err)
	}

	if code := tc.Start(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(tc.stderr.String(), "already exists with pid 4242. Daemon already running?") {
		t.Fatalf("unexpected diagnostic %q", tc.stderr.String())
	}
	pid, err := pidfile.Read(tc.PIDFile())
	if err != nil || pid != 4242 {
		t.Fatalf("pidfile modified: pid=%d err=%v", pid, err)
	}
	if _, err := os.Stat(tc.lockPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no lock probe when pidfile exists, stat err=%v", err)
	}
}

func TestStartRefusesWhileLockHeld(t *testing.T) {
	tc := newTestController(t, Options{})
	lock := flock.New(tc.lockPath)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("hold lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	if code := tc.Start(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(tc.stderr.String(), "daemon start already in progress") {
		t.Fatalf("unexpected diagnostic %q", tc.stderr.String())
	}
	if _, err := os.Stat(tc.PIDFile()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no pidfile, stat err=%v", err)
	}
}

func TestStopWithoutPIDFile(t *testing.T) {
	tc := newTestController(t, Options{})
	tc.killSequence()

	if code := tc.Stop(); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if len(tc.signals) != 0 {
		t.Fatalf("expected no signals, sent %v", tc.signals)
	}
	if !strings.Contains(tc.stderr.String(), "does not exist. Daemon not running?") {
		t.Fatalf("unexpected diagnostic %q", tc.stderr.String())
	}
}

func TestStopWithUnparsablePIDFile(t *testing.T) {
	tc := newTestController(t, Options{})
	tc.killSequence()
	if err := os.WriteFile(tc.PIDFile(), []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := tc.Stop(); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if len(tc.signals) != 0 {
		t.Fatalf("expected no signals, sent %v", tc.signals)
	}
}

func TestStopSignalsUntilProcessIsGone(t *testing.T) {
	tc := newTestController(t, Options{})
	tc.killSequence(nil, nil, nil)
	if err := pidfile.Write(tc.PIDFile(), 31337); err != nil {
		t.Fatal(err)
	}

	if code := tc.Stop(); code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", code, tc.stderr.String())
	}
	if len(tc.signals) != 4 {
		t.Fatalf("expected 4 signal attempts, got %d", len(tc.signals))
	}
	for _, pid := range tc.signals {
		if pid != 31337 {
			t.Fatalf("signalled wrong pid %d", pid)
		}
	}
	if tc.sleeps != 3 {
		t.Fatalf("expected a pause after each delivered signal, got %d", tc.sleeps)
	}
	if _, err := os.Stat(tc.PIDFile()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pidfile removed, stat err=%v", err)
	}

	// Stopping again is a no-op.
	if code := tc.Stop(); code != 0 {
		t.Fatalf("expected second stop to return 0, got %d", code)
	}
}

func TestStopTreatsZombieAsExited(t *testing.T) {
	tc := newTestController(t, Options{})
	tc.killSequence(nil, nil, nil, nil)
	calls := 0
	tc.exited = func(int) bool {
		calls++
		return calls == 2
	}
	if err := pidfile.Write(tc.PIDFile(), 31337); err != nil {
		t.Fatal(err)
	}

	if code := tc.Stop(); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if len(tc.signals) != 2 {
		t.Fatalf("expected 2 signal attempts, got %d", len(tc.signals))
	}
	if _, err := os.Stat(tc.PIDFile()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pidfile removed, stat err=%v", err)
	}
}

func TestStopKeepsPIDFileOnSignalError(t *testing.T) {
	tc := newTestController(t, Options{})
	tc.killSequence(syscall.EPERM)
	if err := pidfile.Write(tc.PIDFile(), 1234); err != nil {
		t.Fatal(err)
	}

	if code := tc.Stop(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(tc.stderr.String(), "signal daemon (pid 1234)") {
		t.Fatalf("unexpected diagnostic %q", tc.stderr.String())
	}
	if pid, err := pidfile.Read(tc.PIDFile()); err != nil || pid != 1234 {
		t.Fatalf("pidfile should be left untouched: pid=%d err=%v", pid, err)
	}
}

func TestStopRefusesCurrentProcess(t *testing.T) {
	tc := newTestController(t, Options{})
	tc.killSequence()
	if err := pidfile.Write(tc.PIDFile(), os.Getpid()); err != nil {
		t.Fatal(err)
	}

	if code := tc.Stop(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if len(tc.signals) != 0 {
		t.Fatalf("expected no signals, sent %v", tc.signals)
	}
}

func TestStopTimeout(t *testing.T) {
	tc := newTestController(t, Options{Timeout: time.Second})
	tc.terminate = func(int) error { return nil }
	clock := time.Unix(0, 0)
	tc.now = func() time.Time { return clock }
	tc.sleep = func(d time.Duration) {
		tc.sleeps++
		clock = clock.Add(d)
	}
	if err := pidfile.Write(tc.PIDFile(), 555); err != nil {
		t.Fatal(err)
	}

	if code := tc.Stop(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if tc.sleeps != 10 {
		t.Fatalf("expected 10 polls of %s within %s, got %d", DefaultPollInterval, time.Second, tc.sleeps)
	}
	if !strings.Contains(tc.stderr.String(), "did not exit within 1s") {
		t.Fatalf("unexpected diagnostic %q", tc.stderr.String())
	}
	if _, err := os.Stat(tc.PIDFile()); err != nil {
		t.Fatalf("pidfile should survive a timed out stop: %v", err)
	}
}

func TestRestartReturnsStopFailure(t *testing.T) {
	tc := newTestController(t, Options{})
	tc.killSequence(syscall.EPERM)
	if err := pidfile.Write(tc.PIDFile(), 1234); err != nil {
		t.Fatal(err)
	}

	if code := tc.Restart(); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if strings.Contains(tc.stderr.String(), "already running") {
		t.Fatalf("start must not run after a failed stop: %q", tc.stderr.String())
	}
	if tc.stdout.Len() != 0 {
		t.Fatalf("expected no detach progress, got %q", tc.stdout.String())
	}
}

func TestCurrentStage(t *testing.T) {
	tests := []struct {
		value string
		want  detachStage
	}{
		{value: "", want: stageForeground},
		{value: "0", want: stageForeground},
		{value: "1", want: stageSession},
		{value: "2", want: stageDetached},
		{value: "bogus", want: stageForeground},
	}
	for _, tt := range tests {
		t.Setenv(stageEnv, tt.value)
		if got := currentStage(); got != tt.want {
			t.Fatalf("stage for %q = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestStageEnvironReplacesMarker(t *testing.T) {
	env := stageEnviron([]string{"HOME=/root", stageEnv + "=1", "PATH=/bin"}, stageDetached)
	markers := 0
	for _, kv := range env {
		if strings.HasPrefix(kv, stageEnv+"=") {
			markers++
			if kv != stageEnv+"=2" {
				t.Fatalf("unexpected marker %q", kv)
			}
		}
	}
	if markers != 1 {
		t.Fatalf("expected exactly one stage marker, got %d in %v", markers, env)
	}
	if len(env) != 3 {
		t.Fatalf("expected other variables preserved, got %v", env)
	}
}
