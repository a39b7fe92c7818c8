package daemon

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"daemonkit/internal/pidfile"
)

// Status describes the instance bound to a pidfile.
type Status struct {
	PIDFile string
	PID     int
	Running bool
	// Stale is set when the pidfile names a process that no longer runs.
	Stale     bool
	Name      string
	Cmdline   string
	StartedAt time.Time
}

// Status inspects the pidfile and the process it names without changing
// either.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	status := Status{PIDFile: c.pidPath}
	pid, err := pidfile.Read(c.pidPath)
	if errors.Is(err, pidfile.ErrNotExist) || errors.Is(err, pidfile.ErrInvalid) {
		return status, nil
	}
	if err != nil {
		return status, err
	}
	status.PID = pid

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		status.Stale = true
		return status, nil
	}
	if states, err := proc.StatusWithContext(ctx); err == nil && slices.Contains(states, process.Zombie) {
		status.Stale = true
		return status, nil
	}
	status.Running = true

	// Details are best effort; another user's process may hide them.
	if name, err := proc.NameWithContext(ctx); err == nil {
		status.Name = name
	}
	if cmdline, err := proc.CmdlineWithContext(ctx); err == nil {
		status.Cmdline = strings.TrimSpace(cmdline)
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil && created > 0 {
		status.StartedAt = time.UnixMilli(created)
	}
	return status, nil
}

// isZombie reports whether pid has exited but is still waiting to be reaped.
// Signals to such a process succeed, so Stop would otherwise never see ESRCH.
func isZombie(pid int) bool {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	states, err := proc.Status()
	if err != nil {
		return false
	}
	return slices.Contains(states, process.Zombie)
}
