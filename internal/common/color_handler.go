package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ANSI color codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"
)

// ColorHandler is a human friendly slog handler. The "component" attribute is
// lifted out of the attribute list and printed as a bracketed prefix.
type ColorHandler struct {
	opts      *slog.HandlerOptions
	mu        *sync.Mutex
	writer    io.Writer
	attrs     []slog.Attr
	component string
	masker    *Masker
	useColor  bool
}

// NewColorHandler creates a new color handler
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorHandler{opts: opts, mu: &sync.Mutex{}, writer: w, masker: globalMasker}
}

// Enabled reports whether the handler handles records at the given level
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle handles the Record
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	if !r.Time.IsZero() {
		buf = append(buf, h.colorize(Gray, r.Time.Format(time.RFC3339))...)
		buf = append(buf, ' ')
	}
	buf = append(buf, h.formatLevel(r.Level)...)
	buf = append(buf, ' ')
	if h.component != "" {
		buf = append(buf, h.colorize(Cyan, "["+h.component+"]")...)
		buf = append(buf, ' ')
	}
	buf = append(buf, h.colorize(White, h.masker.MaskString(r.Message))...)

	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	for _, a := range attrs {
		buf = append(buf, ' ')
		buf = append(buf, h.colorize(Cyan, a.Key)...)
		buf = append(buf, '=')
		buf = append(buf, h.formatValue(a)...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf)
	return err
}

func (h *ColorHandler) formatLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.colorize(Red, "[ERROR]")
	case level >= slog.LevelWarn:
		return h.colorize(Yellow, "[WARN ]")
	case level >= slog.LevelInfo:
		return h.colorize(Green, "[INFO ]")
	default:
		return h.colorize(Gray, "[DEBUG]")
	}
}

func (h *ColorHandler) formatValue(a slog.Attr) string {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s, _ := h.masker.MaskValue(a.Key, v.String()).(string)
		if a.Key == "error" {
			return h.colorize(Red, fmt.Sprintf("%q", s))
		}
		return h.colorize(White, fmt.Sprintf("%q", s))
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64:
		return h.colorize(Magenta, v.String())
	case slog.KindBool:
		if v.Bool() {
			return h.colorize(Green, "true")
		}
		return h.colorize(Red, "false")
	case slog.KindDuration:
		return h.colorize(Yellow, v.Duration().String())
	case slog.KindTime:
		return h.colorize(Gray, v.Time().Format(time.RFC3339))
	default:
		if err, ok := v.Any().(error); ok {
			return h.colorize(Red, fmt.Sprintf("%q", h.masker.MaskString(err.Error())))
		}
		return h.colorize(White, h.masker.MaskString(v.String()))
	}
}

func (h *ColorHandler) colorize(color, text string) string {
	if !h.useColor {
		return text
	}
	return color + text + Reset
}

// WithAttrs returns a new ColorHandler with the given attributes added
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == "component" {
			if next.component == "" {
				next.component = a.Value.String()
			} else {
				next.component += "." + a.Value.String()
			}
			continue
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

// WithGroup returns a new ColorHandler; groups are rendered as key prefixes.
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	next := h.clone()
	if next.component == "" {
		next.component = name
	} else {
		next.component += "." + name
	}
	return next
}

func (h *ColorHandler) clone() *ColorHandler {
	attrs := make([]slog.Attr, len(h.attrs))
	copy(attrs, h.attrs)
	return &ColorHandler{
		opts:      h.opts,
		mu:        h.mu,
		writer:    h.writer,
		attrs:     attrs,
		component: h.component,
		masker:    h.masker,
		useColor:  h.useColor,
	}
}

// SetColorEnabled enables or disables colors
func (h *ColorHandler) SetColorEnabled(enabled bool) {
	h.useColor = enabled
}
