package cli

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/stylesync/internal/errors"
)

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unknown command", stderrors.New(`unknown command "wacth" for "stylesync"`), true},
		{"unknown flag", stderrors.New("unknown flag: --foo"), true},
		{"unknown shorthand", stderrors.New("unknown shorthand flag: 'x' in -x"), true},
		{"other error", stderrors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestExtractUnknownCommand(t *testing.T) {
	assert.Equal(t, "wacth", extractUnknownCommand(stderrors.New(`unknown command "wacth" for "stylesync"`)))
	assert.Equal(t, "", extractUnknownCommand(stderrors.New("unknown flag: --foo")))
}

func TestFormatError(t *testing.T) {
	t.Run("structured error keeps its format", func(t *testing.T) {
		err := errors.New(errors.ErrConfig, "Bad config", "Fix it")
		assert.Equal(t, err.Error(), formatError(err))
	})

	t.Run("wrapped structured error", func(t *testing.T) {
		inner := errors.New(errors.ErrTransport, "Lost stream", "Reconnect")
		got := formatError(wrapErr{inner})
		assert.Contains(t, got, "Lost stream")
	})

	t.Run("unknown command gets a hint", func(t *testing.T) {
		got := formatError(stderrors.New(`unknown command "wacth" for "stylesync"`))
		assert.Contains(t, got, "'wacth' isn't a stylesync command")
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, "✗ boom\n", formatError(stderrors.New("boom")))
	})
}

type wrapErr struct{ err error }

func (w wrapErr) Error() string { return "wrapped: " + w.err.Error() }
func (w wrapErr) Unwrap() error { return w.err }

func TestRootCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"watch", "serve", "init", "doctor", "version", "completion"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}
