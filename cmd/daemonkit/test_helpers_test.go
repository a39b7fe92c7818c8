package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"daemonkit/internal/config"
)

type cliTestEnv struct {
	home    string
	pidPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	env := &cliTestEnv{
		home:    filepath.Join(base, "home"),
		pidPath: filepath.Join(base, "run", "daemonkit.pid"),
	}
	t.Setenv("HOME", env.home)
	t.Setenv(config.EnvPIDFile, env.pidPath)
	t.Setenv("DAEMONKIT_DETACH_STAGE", "")
	t.Chdir(base)
	return env
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Fatalf("expected %q in output:\n%s", want, got)
	}
}
