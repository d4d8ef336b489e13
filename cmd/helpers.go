package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/eric8810/authy/internal/engineerrors"
)

// isTerminalStderr reports whether stderr is attached to a terminal, used to
// decide whether status chatter should be colorized.
func isTerminalStderr() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// statusf prints a colorized status line to stderr. It never touches
// stdout, which is reserved for the command's actual result (a secret
// value, a token, a JSON document) so shell composition like
// `x=$(authy get foo)` stays clean.
func statusf(c *color.Color, format string, args ...interface{}) {
	fmt.Fprint(os.Stderr, c.Sprintf(format, args...))
}

// infof prints an uncolored informational line to stderr.
func infof(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// payload prints s to stdout with a trailing newline: the one place a
// command writes its actual result, as opposed to status chatter.
func payload(s string) {
	fmt.Fprintln(os.Stdout, s)
}

var (
	colorSuccess = color.New(color.FgGreen)
	colorWarn    = color.New(color.FgYellow)
	colorError   = color.New(color.FgRed)
)

// notFoundError builds the standard SecretNotFound error for a missing name.
func notFoundError(name string) error {
	return engineerrors.New(engineerrors.KindSecretNotFound, fmt.Sprintf("secret %q not found", name))
}
