// Package errors carries the failures stylesync shows on the command line.
// Domain errors (stream.TransportError, snapshot.DecodeError) stay wrapped
// as the Cause so callers can still reach them with errors.As.
package errors

import (
	"errors"
	"strings"
)

// Codes group failures by the part of stylesync that gave up.
const (
	ErrConfig    = "CONFIG"    // .stylesync.yaml, flags, environment
	ErrTransport = "TRANSPORT" // the metrics WebSocket
	ErrServer    = "SERVER"    // `stylesync serve`
)

// Error is printed by the CLI as a headline, the underlying reason and a
// next step, each block separated by a blank line:
//
//	✗ Lost the metrics stream at ws://localhost:8000/ws/metrics
//
//	  read ws://localhost:8000/ws/metrics: websocket: close 1006
//
//	  Start a producer with 'stylesync serve'
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New returns an Error with no underlying cause.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap attaches a headline to a stream failure.
func Wrap(err error, message string) *Error {
	return WrapWithCode(err, ErrTransport, message, "")
}

// WrapWithCode attaches a headline and a next step to err.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("✗ " + e.Message + "\n")

	if reason := e.reason(); reason != "" {
		b.WriteString("\n" + indent(reason))
	}
	if e.Suggestion != "" {
		b.WriteString("\n" + indent(e.Suggestion))
	}
	return b.String()
}

// reason renders the cause without repeating the headline. A nested Error
// contributes its message and reason, not its own ✗ block.
func (e *Error) reason() string {
	if e.Cause == nil {
		return ""
	}

	var text string
	var inner *Error
	if errors.As(e.Cause, &inner) && inner != e {
		text = inner.Message
		if r := inner.reason(); r != "" {
			text += "\n" + r
		}
	} else {
		text = e.Cause.Error()
	}

	if strings.TrimSpace(text) == strings.TrimSpace(e.Message) {
		return ""
	}
	return text
}

// indent prefixes every line with two spaces and ends with a newline.
func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "  " + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether err, or anything it wraps, is an Error with code.
func IsCode(err error, code string) bool {
	var sErr *Error
	return errors.As(err, &sErr) && sErr.Code == code
}
