package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/hatlonely/ecomingest/dataset"
)

// ColumnType 与具体数据库无关的列类型
type ColumnType string

const (
	TypeInt      ColumnType = "INT"
	TypeFloat    ColumnType = "FLOAT"
	TypeDatetime ColumnType = "DATETIME"
	TypeText     ColumnType = "TEXT"
)

func ParseColumnType(s string) (ColumnType, error) {
	switch t := ColumnType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeInt, TypeFloat, TypeDatetime, TypeText:
		return t, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// UnmarshalText 校验登记表中读出的类型，空值表示只按列名比较
func (t *ColumnType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = ""
		return nil
	}
	typ, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = typ
	return nil
}

type ColumnDescriptor struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

type Schema struct {
	Columns []ColumnDescriptor `json:"columns"`
}

// Infer 根据每列非空值的类型推断列类型，结果只依赖数据内容
//
//	全部为整数         INT
//	整数与浮点数混合   FLOAT
//	全部为时间戳       DATETIME
//	其他情况或全部为空 TEXT
func Infer(ds *dataset.Dataset) *Schema {
	names := ds.Columns()
	s := &Schema{Columns: make([]ColumnDescriptor, len(names))}
	for i, name := range names {
		col, _ := ds.Column(name)
		s.Columns[i] = ColumnDescriptor{Name: name, Type: typeOf(dataset.ColumnKind(col))}
	}
	return s
}

func typeOf(kind dataset.Kind) ColumnType {
	switch kind {
	case dataset.KindInt:
		return TypeInt
	case dataset.KindFloat:
		return TypeFloat
	case dataset.KindTime:
		return TypeDatetime
	default:
		return TypeText
	}
}

func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

func (s *Schema) Lookup(name string) (ColumnDescriptor, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// Fingerprint 按顺序对列名和类型计算的 sha256
func (s *Schema) Fingerprint() string {
	h := sha256.New()
	for _, c := range s.Columns {
		fmt.Fprintf(h, "%d:%s|%s\n", len(c.Name), c.Name, c.Type)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.Name + " " + string(c.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
