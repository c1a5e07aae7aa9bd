package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LogOptions configures NewLogger.
type LogOptions struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string

	// Format is "text" or "json" (default: text)
	Format string

	// NoColor disables colored level tags in text format
	NoColor bool
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// NewLogger builds the structured logger used across the tool.
func NewLogger(w io.Writer, opts LogOptions) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		useColors := !opts.NoColor && isTerminal(w) && supportsColors()
		return slog.New(newConsoleHandler(w, level, useColors)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", opts.Format)
	}
}

// consoleHandler is a slog.Handler writing one line per record:
//
//	15:04:05.000 WARN request failed vu=3 iteration=12 error="..."
type consoleHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string

	levelColors map[slog.Level]*color.Color
}

func newConsoleHandler(w io.Writer, level slog.Leveler, useColors bool) *consoleHandler {
	colors := map[slog.Level]*color.Color{
		slog.LevelDebug: color.New(color.Faint),
		slog.LevelInfo:  color.New(color.FgCyan),
		slog.LevelWarn:  color.New(color.FgYellow, color.Bold),
		slog.LevelError: color.New(color.FgRed, color.Bold),
	}
	for _, c := range colors {
		if useColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &consoleHandler{
		w:           w,
		mu:          &sync.Mutex{},
		level:       level,
		levelColors: colors,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	if !r.Time.IsZero() {
		sb.WriteString(r.Time.Format("15:04:05.000"))
		sb.WriteByte(' ')
	}
	sb.WriteString(h.levelTag(r.Level))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&sb, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.prefix, a)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// levelTag returns the padded, colored level name.
func (h *consoleHandler) levelTag(level slog.Level) string {
	name := fmt.Sprintf("%-5s", level.String())
	base := slog.LevelDebug
	switch {
	case level >= slog.LevelError:
		base = slog.LevelError
	case level >= slog.LevelWarn:
		base = slog.LevelWarn
	case level >= slog.LevelInfo:
		base = slog.LevelInfo
	}
	return h.levelColors[base].Sprint(name)
}

// writeAttr appends " key=value", quoting values with spaces.
func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(sb, prefix+a.Key+".", ga)
		}
		return
	}

	var value string
	switch a.Value.Kind() {
	case slog.KindDuration:
		value = a.Value.Duration().String()
	case slog.KindTime:
		value = a.Value.Time().Format(time.RFC3339)
	default:
		value = a.Value.String()
	}
	if value == "" || strings.ContainsAny(value, " \t\"=") {
		value = fmt.Sprintf("%q", value)
	}

	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(value)
}
