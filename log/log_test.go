package log

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLogWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *Options
		wantErr bool
	}{
		{
			name:    "nil options",
			options: nil,
			wantErr: true,
		},
		{
			name:    "default console output",
			options: &Options{Level: "info"},
			wantErr: false,
		},
		{
			name: "json to stdout",
			options: &Options{
				Level:  "debug",
				Format: "json",
				Output: WriterOptions{Type: "console", Target: "stdout"},
			},
			wantErr: false,
		},
		{
			name: "file output",
			options: &Options{
				Output: WriterOptions{Type: "file", Path: filepath.Join(t.TempDir(), "logs", "ingest.log")},
			},
			wantErr: false,
		},
		{
			name: "file output without path",
			options: &Options{
				Output: WriterOptions{Type: "file"},
			},
			wantErr: true,
		},
		{
			name:    "invalid level",
			options: &Options{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			options: &Options{Format: "xml"},
			wantErr: true,
		},
		{
			name:    "invalid writer type",
			options: &Options{Output: WriterOptions{Type: "kafka"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogWithOptions() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("NewLogWithOptions() returned nil logger without error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"DEBUG", false},
		{"invalid", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, err := parseLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogWithWriter(&buf, &Options{
		Level:  "debug",
		Format: "json",
		Fields: map[string]any{"service": "ecomingest"},
	})
	if err != nil {
		t.Fatalf("NewLogWithWriter() error = %v", err)
	}

	logger.With("table", "orders").WithGroup("stage").InfoContext(context.Background(), "rows inserted", "count", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if record["msg"] != "rows inserted" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["service"] != "ecomingest" || record["table"] != "orders" {
		t.Errorf("missing fields in %v", record)
	}
	stage, ok := record["stage"].(map[string]any)
	if !ok || stage["count"] != float64(3) {
		t.Errorf("group attrs not nested: %v", record)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogWithWriter(&buf, &Options{Level: "warn"})
	if err != nil {
		t.Fatalf("NewLogWithWriter() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestCustomTimeFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogWithWriter(&buf, &Options{TimeFormat: "2006-01-02"})
	if err != nil {
		t.Fatalf("NewLogWithWriter() error = %v", err)
	}
	logger.Info("hello")
	want := "time=" + time.Now().Format("2006-01-02") + " "
	if !strings.Contains(buf.String(), want) {
		t.Errorf("time not rendered with custom format, want prefix %q in %q", want, buf.String())
	}
}

func TestFileWriter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "app.log")

	w, err := NewWriterWithOptions(&WriterOptions{Type: "file", Path: logFile})
	if err != nil {
		t.Fatalf("NewWriterWithOptions() error = %v", err)
	}

	testData := []byte("test log message\n")
	n, err := w.Write(testData)
	if err != nil {
		t.Errorf("Write() error = %v", err)
	}
	if n != len(testData) {
		t.Errorf("Write() wrote %d bytes, want %d", n, len(testData))
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "test log message") {
		t.Errorf("log file doesn't contain expected message")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	var buf bytes.Buffer
	l, _ := NewLogWithWriter(&buf, &Options{})
	prev := Default()
	SetDefault(l)
	defer SetDefault(prev)

	Default().Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("SetDefault did not take effect: %q", buf.String())
	}
}
