//go:build !unix

package daemon

import (
	"errors"
	"os"
)

var errNotSupported = errors.New("daemon: non-POSIX OS is not supported")

func enterSession() error {
	return errNotSupported
}

func redirectStdio(string, string, string) error {
	return errNotSupported
}

func terminateProcess(int) error {
	return errNotSupported
}

func isNoSuchProcess(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
