package dataset

import (
	"fmt"
)

// Dataset 内存中的表格数据，按列存储
//
// Dataset 创建后不再修改，MapColumn/WithColumn 返回新的 Dataset，
// 未变化的列在新旧 Dataset 之间共享。
type Dataset struct {
	// Path 数据来源，仅用于日志和报错
	Path string

	names []string
	index map[string]int
	cols  [][]Value
	rows  int
}

// New 从行数据创建 Dataset，每行长度必须等于列数
func New(columns []string, rows [][]Value) (*Dataset, error) {
	index, err := buildIndex(columns)
	if err != nil {
		return nil, err
	}

	cols := make([][]Value, len(columns))
	for j := range cols {
		cols[j] = make([]Value, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}

	return &Dataset{
		names: append([]string(nil), columns...),
		index: index,
		cols:  cols,
		rows:  len(rows),
	}, nil
}

func buildIndex(columns []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, ok := index[name]; ok {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
	}
	return index, nil
}

// Columns 列名，按源文件顺序
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.names...)
}

func (d *Dataset) NumRows() int    { return d.rows }
func (d *Dataset) NumColumns() int { return len(d.names) }

// ColumnIndex 返回列下标，不存在时返回 -1
func (d *Dataset) ColumnIndex(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// Column 返回列数据的副本
func (d *Dataset) Column(name string) ([]Value, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return append([]Value(nil), d.cols[i]...), true
}

// At 返回第 row 行第 col 列的值
func (d *Dataset) At(row, col int) Value {
	return d.cols[col][row]
}

// Row 返回第 i 行，按列顺序
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.cols))
	for j := range d.cols {
		row[j] = d.cols[j][i]
	}
	return row
}

// WithColumn 返回替换了 name 列的新 Dataset
func (d *Dataset) WithColumn(name string, values []Value) (*Dataset, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	if len(values) != d.rows {
		return nil, fmt.Errorf("column %q has %d values, want %d", name, len(values), d.rows)
	}

	cols := make([][]Value, len(d.cols))
	copy(cols, d.cols)
	cols[i] = values

	return &Dataset{
		Path:  d.Path,
		names: d.names,
		index: d.index,
		cols:  cols,
		rows:  d.rows,
	}, nil
}

// MapColumn 对 name 列逐个应用 fn，返回新 Dataset；列不存在时返回原 Dataset 和 false
func (d *Dataset) MapColumn(name string, fn func(Value) Value) (*Dataset, bool) {
	i := d.ColumnIndex(name)
	if i < 0 {
		return d, false
	}

	values := make([]Value, d.rows)
	for r, v := range d.cols[i] {
		values[r] = fn(v)
	}

	out, _ := d.WithColumn(name, values)
	return out, true
}
