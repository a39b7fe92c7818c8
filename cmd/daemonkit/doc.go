// Package main hosts the daemonkit CLI.
//
// The Cobra command tree maps start, stop, restart and status onto a
// daemon.Controller built from the loaded configuration, and exits with the
// controller's result code. Detach stages re-run the same binary, so start and
// restart re-enter this command tree with an explicit --config path.
package main
