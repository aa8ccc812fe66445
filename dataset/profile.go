package dataset

// ColumnProfile 单列的数据质量统计
type ColumnProfile struct {
	Name   string
	Kind   Kind // 非空值的统一类型，混合类型为 KindText，全为空时为 KindNull
	Nulls  int
	Blanks int // 只包含空白字符的文本
	Zeros  int // 数值 0
}

// Profile 数据集质量报告
type Profile struct {
	Rows    int
	Columns []ColumnProfile
}

// ProfileOf 统计每列的缺失值、空白文本和数值 0 的个数
func ProfileOf(d *Dataset) *Profile {
	p := &Profile{Rows: d.rows, Columns: make([]ColumnProfile, len(d.names))}
	for j, name := range d.names {
		cp := ColumnProfile{Name: name, Kind: ColumnKind(d.cols[j])}
		for _, v := range d.cols[j] {
			switch {
			case v.IsNull():
				cp.Nulls++
			case v.IsBlank():
				cp.Blanks++
			case v.IsZeroNumber():
				cp.Zeros++
			}
		}
		p.Columns[j] = cp
	}
	return p
}

// ColumnKind 非空值的统一类型
//
// int 与 float 混合时为 float，其他混合为 text，全部为空时为 null。
func ColumnKind(values []Value) Kind {
	kind := KindNull
	for _, v := range values {
		k := v.Kind()
		switch {
		case k == KindNull || k == kind:
		case kind == KindNull:
			kind = k
		case (kind == KindInt && k == KindFloat) || (kind == KindFloat && k == KindInt):
			kind = KindFloat
		default:
			return KindText
		}
	}
	return kind
}
