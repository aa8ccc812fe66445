package schema

import (
	"fmt"
	"slices"
)

type DifferenceKind string

const (
	DiffMissing DifferenceKind = "missing" // 新数据中没有该列
	DiffExtra   DifferenceKind = "extra"   // 新数据多出的列
	DiffType    DifferenceKind = "type"
	DiffOrder   DifferenceKind = "order"
)

type Difference struct {
	Kind   DifferenceKind
	Column string
	Want   ColumnType
	Got    ColumnType
}

func (d Difference) String() string {
	switch d.Kind {
	case DiffMissing:
		return fmt.Sprintf("column %q missing", d.Column)
	case DiffExtra:
		return fmt.Sprintf("unexpected column %q", d.Column)
	case DiffType:
		return fmt.Sprintf("column %q type %s, want %s", d.Column, d.Got, d.Want)
	case DiffOrder:
		return "column order differs"
	}
	return string(d.Kind)
}

// Diff 比较 want（已存在的表）与 s（本次数据），没有差异时返回 nil
//
// Want 为空类型时只比较列名，用于无法得到列类型的场景。
func (s *Schema) Diff(want *Schema) []Difference {
	var diffs []Difference
	for _, w := range want.Columns {
		got, ok := s.Lookup(w.Name)
		if !ok {
			diffs = append(diffs, Difference{Kind: DiffMissing, Column: w.Name, Want: w.Type})
			continue
		}
		if w.Type != "" && got.Type != w.Type {
			diffs = append(diffs, Difference{Kind: DiffType, Column: w.Name, Want: w.Type, Got: got.Type})
		}
	}
	for _, g := range s.Columns {
		if _, ok := want.Lookup(g.Name); !ok {
			diffs = append(diffs, Difference{Kind: DiffExtra, Column: g.Name, Got: g.Type})
		}
	}
	if len(diffs) == 0 && !slices.Equal(s.Names(), want.Names()) {
		diffs = append(diffs, Difference{Kind: DiffOrder})
	}
	return diffs
}
