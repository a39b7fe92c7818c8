package pidfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrNotExist reports a missing pidfile.
	ErrNotExist = errors.New("pidfile does not exist")
	// ErrInvalid reports a pidfile that does not hold a positive integer.
	ErrInvalid = errors.New("pidfile does not contain a valid pid")
)

// Read returns the pid recorded at path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return 0, fmt.Errorf("read pidfile %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes pidfile contents. Surrounding whitespace, including the
// trailing newline, is ignored.
func Parse(data []byte) (int, error) {
	value := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(value)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
	}
	return pid, nil
}

// Write records pid at path, creating or truncating the file.
func Write(path string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("write pidfile %q: %w: %d", path, ErrInvalid, pid)
	}
	value := strconv.Itoa(pid) + "\n"
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write pidfile %q: %w", path, err)
	}
	return nil
}

// Remove deletes the pidfile. A file that is already gone is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove pidfile %q: %w", path, err)
	}
	return nil
}
