// Package logger installs the process-wide slog logger.
//
// Logs go to stderr so stdout stays clean for piping into jq.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	attrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	levelStyle = map[slog.Level]lipgloss.Style{
		slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// ColorHandler is a slog.Handler that writes one colored line per record.
type ColorHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

// NewColorHandler creates a ColorHandler writing to w.
func NewColorHandler(w io.Writer, level slog.Leveler) *ColorHandler {
	return &ColorHandler{
		mu:     &sync.Mutex{},
		writer: w,
		level:  level,
	}
}

func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	b.WriteString(timeStyle.Render(r.Time.Format("15:04:05")))
	b.WriteByte(' ')
	b.WriteString(levelText(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	attrs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs = append(attrs, fmt.Sprintf("%s=%v", a.Key, a.Value.Resolve()))
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.formatAttr(a))
		return true
	})
	if len(attrs) > 0 {
		b.WriteByte(' ')
		b.WriteString(attrStyle.Render(strings.Join(attrs, " ")))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &next
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return &next
}

func (h *ColorHandler) formatAttr(a slog.Attr) string {
	return fmt.Sprintf("%s=%v", h.qualify(a.Key), a.Value.Resolve())
}

func (h *ColorHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func levelText(level slog.Level) string {
	text := level.String()
	style, ok := levelStyle[level]
	if !ok {
		return fmt.Sprintf("[%-5s]", text)
	}
	return style.Render(fmt.Sprintf("[%-5s]", text))
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs a ColorHandler on w as the default slog logger.
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	l := slog.New(NewColorHandler(w, level))
	slog.SetDefault(l)
	return l
}
