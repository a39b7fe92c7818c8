package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daemonkit/internal/daemon"
	"daemonkit/internal/logging"
)

// newHeartbeatService returns the bundled example body: a sleep loop that
// logs one heartbeat per interval until the daemon is told to stop.
func newHeartbeatService(interval time.Duration, logger *slog.Logger) daemon.Service {
	if interval <= 0 {
		interval = time.Second
	}
	return daemon.ServiceFunc(func(ctx context.Context) int {
		runLogger := logging.NewComponentLogger(logger, "service").With(
			logging.String(logging.FieldRunID, uuid.NewString()),
		)
		runLogger.Info("service started", logging.Duration("interval", interval))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		beats := 0
		for {
			select {
			case <-ctx.Done():
				runLogger.Info("service stopping", logging.Int("heartbeats", beats))
				return 0
			case <-ticker.C:
				beats++
				runLogger.Info("heartbeat", logging.Int("count", beats))
			}
		}
	})
}
