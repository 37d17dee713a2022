// Package logger builds the engine's structured logger, a fanout
// handler writing both a colored console stream and a JSON file under
// the run directory.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ANSI color codes for the console handler.
const (
	reset  = "\033[0m"
	gray   = "\033[37m"
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
)

// ConsoleHandler writes single-line, colorized records for interactive
// use.
type ConsoleHandler struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleHandler wraps out as a slog.Handler.
func NewConsoleHandler(out io.Writer) *ConsoleHandler {
	return &ConsoleHandler{out: out}
}

func (h *ConsoleHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	color := reset
	switch r.Level {
	case slog.LevelDebug:
		color = gray
	case slog.LevelInfo:
		color = green
	case slog.LevelWarn:
		color = yellow
	case slog.LevelError:
		color = red
	}

	var attrs string
	r.Attrs(func(a slog.Attr) bool {
		attrs += fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
		return true
	})

	msg := fmt.Sprintf("%s%s%s [%s] %s%s\n", color, r.Level.String()[:4], reset, r.Time.Format(time.TimeOnly), r.Message, attrs)
	_, err := h.out.Write([]byte(msg))
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *ConsoleHandler) WithGroup(name string) slog.Handler       { return h }

// FanoutHandler dispatches every record to each wrapped handler.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler combines handlers into one.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		_ = handler.Handle(ctx, r)
	}
	return nil
}

func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: newHandlers}
}

func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &FanoutHandler{handlers: newHandlers}
}

// New builds a logger that writes colorized lines to console and JSON
// records to jsonFile (typically run_data/log.jsonl inside the run
// directory).
func New(console io.Writer, jsonFile io.Writer) *slog.Logger {
	handler := NewFanoutHandler(
		slog.NewJSONHandler(jsonFile, nil),
		NewConsoleHandler(console),
	)
	return slog.New(handler)
}
