package dataset

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout 时间戳的规范文本格式
const TimestampLayout = "2006-01-02 15:04:05"

// Kind 值类型
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Value 可空的单元格值，零值为 null
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

func Null() Value { return Value{} }
func Int(v int64) Value { return Value{kind: KindInt, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Text(v string) Value { return Value{kind: KindText, s: v} }
func Timestamp(v time.Time) Value { return Value{kind: KindTime, t: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank null 或者只包含空白字符的文本
func (v Value) IsBlank() bool {
	return v.kind == KindNull || (v.kind == KindText && strings.TrimSpace(v.s) == "")
}

func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Text() string { return v.s }
func (v Value) Time() time.Time { return v.t }

// IsZeroNumber 数值类型且等于 0
func (v Value) IsZeroNumber() bool {
	return (v.kind == KindInt && v.i == 0) || (v.kind == KindFloat && v.f == 0)
}

// String 文本形式，null 为空串，时间戳使用 TimestampLayout
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText:
		return v.s
	case KindTime:
		return v.t.Format(TimestampLayout)
	default:
		return ""
	}
}

// Any 返回适合作为 SQL 参数绑定的 Go 值，null 为 nil
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindTime:
		return v.t.Format(TimestampLayout)
	default:
		return nil
	}
}

// Equal 比较类型和值
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}
