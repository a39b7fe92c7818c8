//go:build unix

package daemon

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// enterSession decouples the process from its parent's environment.
func enterSession() error {
	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("chdir: %w", err)
	}
	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("setsid: %w", err)
	}
	unix.Umask(0)
	return nil
}

// redirectStdio points fds 0, 1 and 2 at the given paths.
func redirectStdio(stdin, stdout, stderr string) error {
	in, err := os.OpenFile(stdin, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open stdin target: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(stdout, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open stdout target: %w", err)
	}
	defer out.Close()

	errFile, err := os.OpenFile(stderr, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open stderr target: %w", err)
	}
	defer errFile.Close()

	for fd, file := range []*os.File{in, out, errFile} {
		if err := unix.Dup2(int(file.Fd()), fd); err != nil {
			return fmt.Errorf("dup2 %s onto fd %d: %w", file.Name(), fd, err)
		}
	}
	return nil
}

func terminateProcess(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

func isNoSuchProcess(err error) bool {
	return err != nil && errors.Is(err, unix.ESRCH)
}
