package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestColorHandlerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewColorHandler(&buf, slog.LevelWarn))

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown", slog.String("item", "track"))
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "item=track")
}

func TestColorHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewColorHandler(&buf, slog.LevelDebug)).With("cmd", "mtag").WithGroup("tag")

	l.Debug("planned", slog.String("title", "Song"))
	out := buf.String()
	assert.Contains(t, out, "cmd=mtag")
	assert.Contains(t, out, "tag.title=Song")
}
