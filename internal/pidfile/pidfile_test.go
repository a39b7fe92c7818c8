package pidfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"daemonkit/internal/pidfile"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")

	for _, pid := range []int{1, 4242, 99999999} {
		if err := pidfile.Write(path, pid); err != nil {
			t.Fatalf("Write(%d): %v", pid, err)
		}
		got, err := pidfile.Read(path)
		if err != nil {
			t.Fatalf("Read after Write(%d): %v", pid, err)
		}
		if got != pid {
			t.Fatalf("round trip mismatch: wrote %d, read %d", pid, got)
		}
	}
}

func TestWriteFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")
	if err := os.WriteFile(path, []byte("stale contents that are longer\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := pidfile.Write(path, 123); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "123\n" {
		t.Fatalf("unexpected pidfile contents %q", data)
	}
}

func TestWriteRejectsNonPositivePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")
	if err := pidfile.Write(path, 0); !errors.Is(err, pidfile.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no pidfile to be created, stat err=%v", err)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := pidfile.Read(filepath.Join(t.TempDir(), "missing.pid"))
	if !errors.Is(err, pidfile.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "trailing newline", input: "42\n", want: 42},
		{name: "surrounding whitespace", input: "  7 \n\n", want: 7},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0\n", wantErr: true},
		{name: "negative", input: "-5\n", wantErr: true},
		{name: "garbage", input: "not-a-pid\n", wantErr: true},
		{name: "two lines", input: "12\n34\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pidfile.Parse([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, pidfile.ErrInvalid) {
					t.Fatalf("expected ErrInvalid, got pid=%d err=%v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")
	if err := pidfile.Write(path, 10); err != nil {
		t.Fatal(err)
	}
	if err := pidfile.Remove(path); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	if err := pidfile.Remove(path); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pidfile removed, stat err=%v", err)
	}
}
