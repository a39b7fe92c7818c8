// Package pidfile reads and writes the single-line process identifier file
// that marks a running daemon instance.
//
// The format is one decimal pid followed by a newline. Readers ignore
// surrounding whitespace and reject anything that is not a positive integer,
// so a truncated or hand-edited file reads as ErrInvalid rather than as a
// live instance.
package pidfile
