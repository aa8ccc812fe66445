package clean

import (
	"sort"
	"unicode/utf8"

	"github.com/hatlonely/ecomingest/dataset"
)

// TruncateStep 将文本截断到指定字符数，null 保持不变
type TruncateStep struct {
	Limits map[string]int
}

func (s *TruncateStep) Name() string { return "truncate" }

func (s *TruncateStep) Apply(ds *dataset.Dataset) (*dataset.Dataset, []Stats) {
	columns := make([]string, 0, len(s.Limits))
	for column := range s.Limits {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	var stats []Stats
	for _, column := range columns {
		var st []Stats
		limit := s.Limits[column]
		ds, st = mapColumns(ds, s.Name(), []string{column}, func(v dataset.Value) (dataset.Value, bool) {
			return Truncate(v, limit), false
		})
		stats = append(stats, st...)
	}
	return ds, stats
}

func Truncate(v dataset.Value, limit int) dataset.Value {
	if v.IsNull() {
		return v
	}
	s := v.String()
	if utf8.RuneCountInString(s) <= limit {
		return dataset.Text(s)
	}
	return dataset.Text(string([]rune(s)[:limit]))
}
