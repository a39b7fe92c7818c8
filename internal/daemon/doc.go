// Package daemon turns a long-running Service into a detached UNIX daemon and
// controls its lifecycle through a pidfile.
//
// Start performs the classic double detach: the foreground process hands off
// to a child that starts a new session, and that child hands off to a
// grandchild that can never reacquire a controlling terminal. Each hand-off
// re-executes the current binary with a stage marker in the environment, so
// callers must route the same arguments back into Start (or Restart) on every
// invocation. The grandchild redirects its standard streams, records its pid,
// and runs the service until SIGTERM. The first SIGTERM or SIGINT cancels the
// service context; any later one takes the default action and ends the
// process, so Stop's repeated signals also end a body that ignores ctx.
//
// Stop keeps sending SIGTERM to the recorded pid until the process is gone,
// then removes the pidfile. A missing pidfile is not an error, which keeps
// Restart usable on a stopped daemon. An advisory flock on "<pidfile>.lock",
// held for the daemon's lifetime, rejects a second instance that slips in
// before the first one has written its pidfile. The lock file is left in
// place after the daemon exits. Removing it would let two starters lock
// different inodes under the same name.
package daemon
