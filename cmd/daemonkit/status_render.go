package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusLabelWidth fits the longest label, "Pidfile:".
const statusLabelWidth = 9

var statusKinds = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// renderStatusLine formats "  Label:    [KIND] message".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	k := statusKinds[kind]
	line := fmt.Sprintf("  %-*s [%s]", statusLabelWidth, label+":", k.label)
	if message != "" {
		line += " " + message
	}
	if colorize {
		return k.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) string {
	header := "== " + title + " =="
	if colorize {
		return ansiBlue + header + ansiReset
	}
	return header
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && isatty.IsTerminal(file.Fd())
}
