package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"daemonkit/internal/daemon"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Detach into the background and run the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd, "start")
			if err != nil {
				return err
			}
			return resultCode(ctl.Start())
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Terminate the daemon recorded in the pidfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd, "stop")
			if err != nil {
				return err
			}
			return resultCode(ctl.Stop())
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon, then start it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd, "restart")
			if err != nil {
				return err
			}
			return resultCode(ctl.Restart())
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := ctx.controller(cmd, "status")
			if err != nil {
				return err
			}
			status, err := ctl.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon status: %w", err)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			fmt.Fprintln(stdout, renderSectionHeader("Daemon Status", colorize))
			for _, line := range statusLines(status, colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !status.Running {
				return nil
			}

			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, renderSectionHeader("Process", colorize))
			fmt.Fprint(stdout, renderTable([]string{"Field", "Value"}, processRows(status, time.Now())))
			fmt.Fprintln(stdout)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func statusLines(status daemon.Status, colorize bool) []string {
	lines := make([]string, 0, 3)
	switch {
	case status.Running:
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	case status.Stale:
		lines = append(lines, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("Not running, stale pidfile (pid %d)", status.PID), colorize))
	default:
		lines = append(lines, renderStatusLine("Daemon", statusError, "Not running", colorize))
	}
	lines = append(lines, renderStatusLine("Pidfile", statusInfo, status.PIDFile, colorize))
	lines = append(lines, renderStatusLine("Stale", statusInfo, yesNo(status.Stale), colorize))
	return lines
}

func processRows(status daemon.Status, now time.Time) [][]string {
	rows := [][]string{
		{"PID", strconv.Itoa(status.PID)},
	}
	if status.Name != "" {
		rows = append(rows, []string{"Name", status.Name})
	}
	if status.Cmdline != "" {
		rows = append(rows, []string{"Command", status.Cmdline})
	}
	if !status.StartedAt.IsZero() {
		rows = append(rows,
			[]string{"Started", status.StartedAt.Local().Format(time.RFC3339)},
			[]string{"Uptime", now.Sub(status.StartedAt).Truncate(time.Second).String()},
		)
	}
	return rows
}
