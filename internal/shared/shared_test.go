package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestConfigureLogger(t *testing.T) {
	tc := []struct {
		name  string
		level string
		want  log.Level
	}{
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "warn", level: "warn", want: log.WarnLevel},
		{name: "unknown falls back to info", level: "chatty", want: log.InfoLevel},
		{name: "empty falls back to info", level: "", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLogger(&bytes.Buffer{})
			ConfigureLogger(l, LoggingConfig{Level: tt.level})
			if got := l.GetLevel(); got != tt.want {
				t.Errorf("ConfigureLogger() level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := WithLogger(NewLogger(&buf), "component", "loader")
	l.Info("hello")

	if !strings.Contains(buf.String(), "component=loader") {
		t.Errorf("expected child logger fields in output, got %q", buf.String())
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a, b)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/Music"); got != filepath.Join(home, "Music") {
		t.Errorf("ExpandPath(~/Music) = %q", got)
	}
	if got := ExpandPath("/srv/music"); got != "/srv/music" {
		t.Errorf("absolute paths should be unchanged, got %q", got)
	}
	if got := ExpandPath("~user/x"); got != "~user/x" {
		t.Errorf("other users' homes should be unchanged, got %q", got)
	}
}
