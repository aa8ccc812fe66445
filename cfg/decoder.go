package cfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Decode 按扩展名把配置内容解码为嵌套 map
func Decode(ext string, data []byte) (map[string]any, error) {
	result := map[string]any{}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode TOML: %w", err)
		}
	case ".ini":
		return decodeINI(data)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}

	return result, nil
}

func decodeINI(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode INI: %w", err)
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if name := section.Name(); name != ini.DefaultSection {
			for _, part := range strings.Split(name, ".") {
				child, ok := target[part].(map[string]any)
				if !ok {
					child = map[string]any{}
					target[part] = child
				}
				target = child
			}
		}
		for _, key := range section.Keys() {
			// 值保持字符串，由 Bind 按目标类型转换
			target[key.Name()] = key.String()
		}
	}

	return result, nil
}
