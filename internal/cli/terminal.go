// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection and prompting for vaulthub commands.
//
// Commands read and write through Streams so tests can drive them without a
// terminal. TTY checks look at the underlying *os.File when there is one.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// STREAMS
// =============================================================================

// Streams bundles the standard streams of a command run.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	reader *bufio.Reader
}

// StdStreams returns the process streams.
func StdStreams() *Streams {
	return &Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// isTerminal reports whether v is an *os.File attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsTTY returns true if stdin is a terminal.
func (s *Streams) IsTTY() bool { return isTerminal(s.In) }

// IsStdoutTTY returns true if stdout is a terminal.
func (s *Streams) IsStdoutTTY() bool { return isTerminal(s.Out) }

// IsStderrTTY returns true if stderr is a terminal.
func (s *Streams) IsStderrTTY() bool { return isTerminal(s.Err) }

// ReadLine reads one line from stdin without the trailing newline.
func (s *Streams) ReadLine() (string, error) {
	if s.reader == nil {
		s.reader = bufio.NewReader(s.In)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompt writes label to stderr and reads a line.
func (s *Streams) Prompt(label string) (string, error) {
	fmt.Fprint(s.Err, label)
	return s.ReadLine()
}

// PromptSecret reads a secret without echo. Without a terminal it falls back
// to reading a plain line so secrets can be piped in.
// SECURITY: the value is never written back to any stream.
func (s *Streams) PromptSecret(label string) (string, error) {
	f, ok := s.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return s.ReadLine()
	}
	fmt.Fprint(s.Err, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(s.Err)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// TerminalWidth returns the width of stdout, or DefaultTerminalWidth.
func (s *Streams) TerminalWidth() int {
	f, ok := s.Out.(*os.File)
	if !ok {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsMu       sync.Mutex
	colorsEnabled  bool
	colorsResolved bool
)

// ColorsEnabled returns true if colored output should be used.
// Respects NO_COLOR and FORCE_COLOR; otherwise colors follow stdout being a
// terminal. See https://no-color.org/.
func ColorsEnabled() bool {
	colorsMu.Lock()
	defer colorsMu.Unlock()
	if !colorsResolved {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsEnabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsEnabled = true
		default:
			colorsEnabled = isTerminal(os.Stdout)
		}
		colorsResolved = true
	}
	return colorsEnabled
}

// SetColorsEnabled overrides color detection. Used by --no-color and tests.
func SetColorsEnabled(enabled bool) {
	colorsMu.Lock()
	colorsEnabled = enabled
	colorsResolved = true
	colorsMu.Unlock()
	applyColorProfile()
}

// GetColorProfile returns the appropriate termenv color profile.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// TTYRequiredError is returned when an operation requires a TTY but none is available.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	if e.Operation != "" {
		return "stdin is not a terminal; cannot " + e.Operation + " interactively"
	}
	return "stdin is not a terminal; interactive input not available"
}

// RequiresTTY returns an error if stdin is not a terminal.
func (s *Streams) RequiresTTY(operation string) error {
	if !s.IsTTY() {
		return &TTYRequiredError{Operation: operation}
	}
	return nil
}
