package log_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hatlonely/ecomingest/log"
)

func ExampleNewLogWithOptions_console() {
	logger, err := log.NewLogWithOptions(&log.Options{
		Level:      "info",
		Format:     "text",
		TimeFormat: "2006-01-02 15:04:05",
		Fields: map[string]any{
			"service": "ecomingest",
		},
		Output: log.WriterOptions{Type: "console", Target: "stderr"},
	})
	if err != nil {
		fmt.Printf("create logger failed: %v\n", err)
		return
	}

	logger.Info("dataset loaded", "rows", 4675, "columns", 24)
	logger.With("run_id", "0190a6b2").Warn("column coerced", "column", "order_date", "coerced", 3)
	logger.WithGroup("database").Info("connected", "driver", "mysql", "host", "localhost")
}

func ExampleNewLogWithOptions_file() {
	dir, err := os.MkdirTemp("", "ecomingest-log")
	if err != nil {
		return
	}
	defer os.RemoveAll(dir)

	logger, err := log.NewLogWithOptions(&log.Options{
		Level:  "debug",
		Format: "json",
		Output: log.WriterOptions{
			Type:       "file",
			Path:       filepath.Join(dir, "ecomingest.log"),
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	})
	if err != nil {
		fmt.Printf("create logger failed: %v\n", err)
		return
	}

	logger.Debug("stage completed", "stage", "load", "duration_ms", 12)
}
