package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"go-gin-gorm-users/internal/core/config"
)

func TestNew_JSONToOutput(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := New(Options{Level: "info", JSON: true, Output: zapcore.AddSync(&buf)})
	l.Debug("hidden")
	l.Info("hello", zap.String("k", "v"))
	cleanup()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts key")
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := New(Options{Level: "loud", JSON: true, Output: zapcore.AddSync(&buf)})
	l.Debug("dropped")
	l.Info("kept")
	cleanup()
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNew_RotateFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	opt := FromConfig(config.Log{Level: "info", JSON: true, File: file, MaxSizeMB: 1})
	opt.Output = zapcore.AddSync(&bytes.Buffer{})
	l, cleanup := New(opt)
	l.Info("to file")
	cleanup()

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "to file") {
		t.Errorf("file content = %q", b)
	}
}

func TestRedirectStdLog(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := New(Options{Level: "info", JSON: true, Output: zapcore.AddSync(&buf)})
	defer cleanup()

	undo := RedirectStdLog(l, zapcore.WarnLevel)
	log.Print("from std log")
	undo()

	if !strings.Contains(buf.String(), "from std log") || !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestToWriter_SkipsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := New(Options{Level: "debug", JSON: true, Output: zapcore.AddSync(&buf)})
	defer cleanup()

	w := ToWriter(l, zapcore.DebugLevel)
	_, _ = w.Write([]byte("\n"))
	_, _ = w.Write([]byte("[GIN-debug] GET /health\n"))
	l.Sync()

	if got := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1; got != 1 {
		t.Errorf("got %d entries, want 1: %q", got, buf.String())
	}
}

func TestRedirectGin_RouteTableAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mode := gin.Mode()
	gin.SetMode(gin.DebugMode)
	defer gin.SetMode(mode)

	prevOut := gin.DefaultWriter
	restore := RedirectGin(zap.New(core))
	r := gin.New()
	r.GET("/health", func(c *gin.Context) {})
	_, _ = gin.DefaultErrorWriter.Write([]byte("[GIN-error] broken\n"))
	restore()

	if gin.DefaultWriter != prevOut {
		t.Error("DefaultWriter not restored")
	}
	gl := logs.FilterLoggerName("gin")
	if gl.FilterMessageSnippet("/health").FilterLevelExact(zapcore.DebugLevel).Len() == 0 {
		t.Errorf("route table not logged at debug: %+v", gl.All())
	}
	if gl.FilterMessage("[GIN-error] broken").FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Errorf("error writer not logged at error: %+v", gl.All())
	}
}
