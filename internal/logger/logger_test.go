package logger

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/oggyb/matchfeed/internal/config"
)

// capture points the global logger at a buffer for the duration of f.
func capture(t *testing.T, c Config, f func()) string {
	t.Helper()

	var buf bytes.Buffer
	c.Output = &buf
	Init(&c)
	t.Cleanup(func() { Init(&Config{Level: "info", Format: FormatText, Output: os.Stdout}) })

	f()
	return buf.String()
}

func TestLogger_TextFormat(t *testing.T) {
	out := capture(t, Config{Level: "debug", Format: FormatText, Component: "test"}, func() {
		Info("hello feed", "key", "value")
	})

	if !strings.Contains(out, "hello feed") {
		t.Errorf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected structured field, got: %s", out)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	out := capture(t, Config{Level: "info", Format: FormatJSON, Component: "json_test"}, func() {
		Info("json log", "foo", "bar")
	})

	if !strings.Contains(out, `"msg":"json log"`) {
		t.Errorf("expected JSON message, got: %s", out)
	}
	if !strings.Contains(out, `"component":"json_test"`) {
		t.Errorf("expected component in JSON, got: %s", out)
	}
	if !strings.Contains(out, `"foo":"bar"`) {
		t.Errorf("expected structured field in JSON, got: %s", out)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	out := capture(t, Config{Level: "error", Format: FormatText}, func() {
		Info("should not appear")
		Error("should appear")
	})

	if strings.Contains(out, "should not appear") {
		t.Errorf("info log should not appear, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error log should appear, got: %s", out)
	}
}

func TestLogger_ContextLogger(t *testing.T) {
	out := capture(t, Config{Level: "debug", Format: FormatText}, func() {
		ctx := WithContext(context.Background(), With("req_id", "123"))
		FromContext(ctx).Info("processing request")
		FromContext(context.Background()).Info("no request")
	})

	if !strings.Contains(out, "req_id=123") {
		t.Errorf("expected req_id field, got: %s", out)
	}
	if strings.Count(out, "req_id=123") != 1 {
		t.Errorf("request id leaked into global logger: %s", out)
	}
}

func TestLogger_InitFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = "debug"
	cfg.Log.Format = "JSON"
	cfg.Log.Component = "cfg_test"

	var buf bytes.Buffer
	InitFromConfig(cfg)
	// InitFromConfig always targets stdout; re-point the same settings at the buffer.
	c := cfgSnapshot()
	c.Output = &buf
	Init(&c)
	t.Cleanup(func() { Init(&Config{Level: "info", Format: FormatText, Output: os.Stdout}) })

	Debug("cfg-based log")

	out := buf.String()
	if !strings.Contains(out, `"msg":"cfg-based log"`) {
		t.Errorf("expected config-based JSON log, got: %s", out)
	}
	if !strings.Contains(out, `"component":"cfg_test"`) {
		t.Errorf("expected component from config, got: %s", out)
	}
}

func cfgSnapshot() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
