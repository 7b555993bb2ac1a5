package logger

import (
	"fmt"
	"io"
	"os"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the logger a binary runs with. Output goes to file when set,
// otherwise to stderr; console selects the human-readable format. The
// returned closer releases the file.
func Open(role, level, file string, console bool) (*Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}

	l := NewLogger(role, w)
	if console {
		l = NewConsoleLogger(role, w)
	}
	l, err := l.WithLevel(level)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return l, closer, nil
}
