package clean

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hatlonely/ecomingest/dataset"
)

// TimestampStep 将自由格式的日期文本解析为时间戳
//
// 斜杠分隔的歧义日期按月在前处理，月份越界时再按日在前解析，如 15/03/2020。
// 无法解析或不含数字的值置为 null。
type TimestampStep struct {
	Columns []string
}

func (s *TimestampStep) Name() string { return "timestamp" }

func (s *TimestampStep) Apply(ds *dataset.Dataset) (*dataset.Dataset, []Stats) {
	return mapColumns(ds, s.Name(), s.Columns, ParseTimestamp)
}

// ParseTimestamp 解析单个值，第二个返回值表示非空值被置为 null
func ParseTimestamp(v dataset.Value) (dataset.Value, bool) {
	switch v.Kind() {
	case dataset.KindNull:
		return v, false
	case dataset.KindTime:
		return v, false
	}

	text := strings.TrimSpace(v.String())
	if !strings.ContainsAny(text, "0123456789") {
		return dataset.Null(), true
	}
	t, err := parseDate(text)
	if err != nil {
		return dataset.Null(), true
	}
	return dataset.Timestamp(t), false
}

// dayFirstLayouts 点分隔的日在前格式，dateparse 总是把第一段当作月份
var dayFirstLayouts = []string{
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
}

func parseDate(text string) (time.Time, error) {
	t, err := dateparse.ParseIn(text, time.UTC)
	if err == nil {
		return t, nil
	}
	if t, e := dateparse.ParseIn(text, time.UTC, dateparse.PreferMonthFirst(false)); e == nil {
		return t, nil
	}
	for _, layout := range dayFirstLayouts {
		if t, e := time.ParseInLocation(layout, text, time.UTC); e == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
