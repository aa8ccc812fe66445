package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Bind 将嵌套 map 绑定到结构体指针，字段名取 cfg tag，没有 tag 时使用字段名
// key 匹配不区分大小写
func Bind(data map[string]any, object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer")
	}
	if len(data) == 0 {
		return nil
	}
	return convertValue(data, rv.Elem())
}

// fieldKey 返回字段在配置中的 key，返回空表示忽略该字段
func fieldKey(field reflect.StructField) string {
	tag := field.Tag.Get("cfg")
	if tag == "-" {
		return ""
	}
	if name := strings.Split(tag, ",")[0]; name != "" {
		return name
	}
	return field.Name
}

func convertValue(src any, dst reflect.Value) error {
	srcValue := reflect.ValueOf(src)
	if !srcValue.IsValid() {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	if srcValue.Type().AssignableTo(dst.Type()) {
		dst.Set(srcValue)
		return nil
	}

	if dst.Type() == durationType {
		return convertToDuration(srcValue, dst)
	}

	if srcValue.Kind() == reflect.String {
		return convertFromString(srcValue.String(), dst)
	}

	switch dst.Kind() {
	case reflect.Struct:
		return convertToStruct(srcValue, dst)
	case reflect.Map:
		return convertToMap(srcValue, dst)
	case reflect.Slice:
		return convertToSlice(srcValue, dst)
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(srcValue)
			return nil
		}
	}

	if isNumber(srcValue.Kind()) && isNumber(dst.Kind()) {
		dst.Set(srcValue.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %v to %v", srcValue.Type(), dst.Type())
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertFromString 处理来自环境变量、ini 文件的字符串值
func convertFromString(s string, dst reflect.Value) error {
	s = strings.TrimSpace(s)
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(s)
	case reflect.Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid bool value %q: %v", s, err)
		}
		dst.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(s, 0, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q: %v", s, err)
		}
		dst.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(s, 0, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q: %v", s, err)
		}
		dst.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q: %v", s, err)
		}
		dst.SetFloat(v)
	case reflect.Slice:
		// 逗号分隔的列表
		var parts []string
		if s != "" {
			parts = strings.Split(s, ",")
		}
		slice := reflect.MakeSlice(dst.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := convertFromString(part, slice.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		dst.Set(slice)
	case reflect.Interface:
		dst.Set(reflect.ValueOf(s))
	default:
		return fmt.Errorf("cannot convert string to %v", dst.Type())
	}
	return nil
}

func convertToDuration(src, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(strings.TrimSpace(src.String()))
		if err != nil {
			return fmt.Errorf("failed to parse duration %q: %v", src.String(), err)
		}
		dst.SetInt(int64(d))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 整数视为纳秒
		dst.SetInt(src.Int())
	case reflect.Float32, reflect.Float64:
		// 浮点数视为秒
		dst.SetInt(int64(src.Float() * float64(time.Second)))
	default:
		return fmt.Errorf("cannot convert %v to time.Duration", src.Type())
	}
	return nil
}

func convertToStruct(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("source is not a map")
	}

	keys := make(map[string]reflect.Value, src.Len())
	for _, k := range src.MapKeys() {
		keys[strings.ToLower(fmt.Sprint(k.Interface()))] = src.MapIndex(k)
	}

	dstType := dst.Type()
	for i := 0; i < dstType.NumField(); i++ {
		field := dstType.Field(i)
		fieldValue := dst.Field(i)
		if !fieldValue.CanSet() {
			continue
		}
		name := fieldKey(field)
		if name == "" {
			continue
		}
		value, ok := keys[strings.ToLower(name)]
		if !ok {
			continue
		}
		if err := convertValue(value.Interface(), fieldValue); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	return nil
}

func convertToMap(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("source is not a map")
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	for _, key := range src.MapKeys() {
		item := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.MapIndex(key).Interface(), item); err != nil {
			return fmt.Errorf("key %v: %w", key.Interface(), err)
		}
		k := reflect.New(dst.Type().Key()).Elem()
		if err := convertValue(key.Interface(), k); err != nil {
			return fmt.Errorf("key %v: %w", key.Interface(), err)
		}
		dst.SetMapIndex(k, item)
	}
	return nil
}

func convertToSlice(src, dst reflect.Value) error {
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return fmt.Errorf("source is not a slice or array")
	}

	length := src.Len()
	slice := reflect.MakeSlice(dst.Type(), length, length)
	for i := 0; i < length; i++ {
		if err := convertValue(src.Index(i).Interface(), slice.Index(i)); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	dst.Set(slice)
	return nil
}
