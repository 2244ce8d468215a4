package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		log   func(*log.Logger)
		want  bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("laid out") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("cache miss") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("cache miss") }, true},
		{"warn at info", log.InfoLevel, func(l *log.Logger) { l.Warn("dropped tiles") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.Logger.Debug("hidden")
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown", "wall", "w1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line logged at info level:\n%s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "wall=w1") {
		t.Errorf("missing debug line:\n%s", out)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Laid out 3 tiles")

	out := buf.String()
	if !strings.Contains(out, "Laid out 3 tiles (") || !strings.Contains(out, "s)") {
		t.Errorf("progress output = %q", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Fatal("no fallback logger")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	got := loggerFromContext(withLogger(context.Background(), custom))
	if got != custom {
		t.Fatal("loggerFromContext returned a different logger")
	}
}
