package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// WriterOptions 日志输出配置
type WriterOptions struct {
	// 输出类型：console, file
	Type string `cfg:"type" def:"console" validate:"omitempty,oneof=console file"`

	// 控制台输出目标：stdout, stderr
	Target string `cfg:"target" def:"stderr" validate:"omitempty,oneof=stdout stderr"`

	// 文件路径，Type 为 file 时必填
	Path string `cfg:"path"`
	// 单个文件最大大小（MB），0 表示使用 lumberjack 默认值
	MaxSize int `cfg:"maxSize"`
	// 最大备份数量，0表示不限制
	MaxBackups int `cfg:"maxBackups"`
	// 最大保留天数，0表示不限制
	MaxAge int `cfg:"maxAge"`
	// 是否压缩旧文件
	Compress bool `cfg:"compress"`
}

// NewWriterWithOptions 创建日志输出器
func NewWriterWithOptions(options *WriterOptions) (io.WriteCloser, error) {
	if options == nil {
		options = &WriterOptions{}
	}

	switch options.Type {
	case "console", "":
		return newConsoleWriter(options.Target), nil
	case "file":
		if options.Path == "" {
			return nil, fmt.Errorf("file path is required")
		}
		dir := filepath.Dir(options.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		return &lumberjack.Logger{
			Filename:   options.Path,
			MaxSize:    options.MaxSize,
			MaxBackups: options.MaxBackups,
			MaxAge:     options.MaxAge,
			Compress:   options.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported writer type: %s", options.Type)
	}
}

// consoleWriter 控制台输出器，Close 不关闭标准输出
type consoleWriter struct {
	io.Writer
}

func newConsoleWriter(target string) *consoleWriter {
	if target == "stdout" {
		return &consoleWriter{Writer: os.Stdout}
	}
	return &consoleWriter{Writer: os.Stderr}
}

func (c *consoleWriter) Close() error {
	return nil
}
