// Package log builds the process slog.Logger and the raw wire logger.
//
// Without a log file, records below error level go to stdout and errors go
// to stderr, so stderr can be redirected on its own.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below Debug and is used for per-byte protocol chatter.
const LevelTrace slog.Level = -8

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Fanout passes each record to every handler that accepts its level.
type Fanout []slog.Handler

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		_ = h.Handle(ctx, r.Clone())
	}
	return nil
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f Fanout) WithGroup(name string) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// LevelGate forwards only the records whose level satisfies Pass.
type LevelGate struct {
	Pass func(slog.Level) bool
	Next slog.Handler
}

func (g LevelGate) Enabled(ctx context.Context, level slog.Level) bool {
	return g.Pass(level) && g.Next.Enabled(ctx, level)
}

func (g LevelGate) Handle(ctx context.Context, r slog.Record) error {
	if !g.Pass(r.Level) {
		return nil
	}
	return g.Next.Handle(ctx, r)
}

func (g LevelGate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelGate{Pass: g.Pass, Next: g.Next.WithAttrs(attrs)}
}

func (g LevelGate) WithGroup(name string) slog.Handler {
	return LevelGate{Pass: g.Pass, Next: g.Next.WithGroup(name)}
}

func newHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: renameTrace}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

func renameTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// SetupLogger builds the console logger and, when logFile is set, a file
// logger next to it. The returned closers must be closed on exit.
func SetupLogger(logLevel, logFile, format string) (*slog.Logger, []io.Closer, error) {
	return setupLogger(logLevel, logFile, format, os.Stdout, os.Stderr)
}

func setupLogger(logLevel, logFile, format string, stdout, stderr io.Writer) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(logLevel)
	var handlers Fanout
	var closers []io.Closer

	if logFile == "" {
		out, err := newHandler(stdout, format, level)
		if err != nil {
			return nil, nil, err
		}
		errOut, err := newHandler(stderr, format, slog.LevelError)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers,
			LevelGate{Pass: func(l slog.Level) bool { return l < slog.LevelError }, Next: out},
			LevelGate{Pass: func(l slog.Level) bool { return l >= slog.LevelError }, Next: errOut},
		)
		return slog.New(handlers), nil, nil
	}

	console, err := newHandler(stderr, format, level)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	closers = append(closers, f)
	file, err := newHandler(f, format, level)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	handlers = append(handlers, console, file)
	return slog.New(handlers), closers, nil
}
