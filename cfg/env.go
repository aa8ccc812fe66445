package cfg

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
)

// ApplyEnv 按 object 的结构查找 PREFIX_SECTION_FIELD 形式的环境变量，写入 data
//
// 字段名取 cfg tag 并转成大写下划线形式，例如 database.maxConns -> PREFIX_DATABASE_MAX_CONNS。
// 切片使用逗号分隔，map 使用 "k1=v1,k2=v2"。
func ApplyEnv(object any, prefix string, data map[string]any, lookup func(string) (string, bool)) error {
	rt := reflect.TypeOf(object)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return fmt.Errorf("object must be a struct or a pointer to struct")
	}
	applyEnv(rt, strings.TrimSuffix(strings.ToUpper(prefix), "_"), nil, data, lookup)
	return nil
}

func applyEnv(rt reflect.Type, envPrefix string, path []string, data map[string]any, lookup func(string) (string, bool)) {
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		key := fieldKey(field)
		if key == "" {
			continue
		}

		envName := envPrefix + "_" + toEnvName(key)
		fieldPath := append(append([]string{}, path...), key)

		ft := field.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			applyEnv(ft, envName, fieldPath, data, lookup)
			continue
		}

		value, ok := lookup(envName)
		if !ok {
			continue
		}
		if ft.Kind() == reflect.Map {
			setPath(data, fieldPath, parsePairs(value))
		} else {
			setPath(data, fieldPath, value)
		}
	}
}

func parsePairs(s string) map[string]any {
	result := map[string]any{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return result
}

// setPath 按路径写入嵌套 map，路径中已有的 key 不区分大小写复用
func setPath(data map[string]any, path []string, value any) {
	current := data
	for i, key := range path {
		existing := key
		for k := range current {
			if strings.EqualFold(k, key) {
				existing = k
				break
			}
		}
		if i == len(path)-1 {
			current[existing] = value
			return
		}
		child, ok := current[existing].(map[string]any)
		if !ok {
			child = map[string]any{}
			current[existing] = child
		}
		current = child
	}
}

// toEnvName maxConns -> MAX_CONNS, DSN -> DSN
func toEnvName(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			b.WriteByte('_')
		}
		if r == '.' || r == '-' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
