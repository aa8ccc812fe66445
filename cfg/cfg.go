package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LoadOptions 配置加载选项
type LoadOptions struct {
	// EnvPrefix 环境变量前缀，如 "ECOMINGEST"，为空时不读取环境变量
	EnvPrefix string
	// SkipValidate 跳过 validate tag 校验
	SkipValidate bool
}

type LoadOption func(*LoadOptions)

// WithEnvPrefix 使用 PREFIX_SECTION_FIELD 格式的环境变量覆盖文件中的配置
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *LoadOptions) {
		o.EnvPrefix = prefix
	}
}

// WithoutValidate 加载后不做结构体校验，由调用方在合并命令行参数后自行校验
func WithoutValidate() LoadOption {
	return func(o *LoadOptions) {
		o.SkipValidate = true
	}
}

// Load 从文件加载配置到 object
//
// 配置优先级（从低到高）：def tag 默认值 < 文件 < 环境变量
//
// 支持的文件格式：
//   - .json -> encoding/json
//   - .yaml/.yml -> yaml.v3
//   - .toml -> BurntSushi/toml
//   - .ini -> ini.v1，section 名中的 "." 表示嵌套
//
// filename 为空时只使用默认值和环境变量。
func Load(filename string, object any, opts ...LoadOption) error {
	options := &LoadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	data := map[string]any{}
	if filename != "" {
		content, err := os.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "read config file %s", filename)
		}
		decoded, err := Decode(strings.ToLower(filepath.Ext(filename)), content)
		if err != nil {
			return errors.WithMessagef(err, "decode config file %s", filename)
		}
		data = decoded
	}

	if options.EnvPrefix != "" {
		if err := ApplyEnv(object, options.EnvPrefix, data, os.LookupEnv); err != nil {
			return errors.WithMessage(err, "apply environment overrides")
		}
	}

	if err := Bind(data, object); err != nil {
		return errors.WithMessage(err, "bind config")
	}

	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults")
	}

	if options.SkipValidate {
		return nil
	}
	if err := Validate(object); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
