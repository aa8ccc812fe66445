package clean

import (
	"math"
	"strings"

	"github.com/hatlonely/ecomingest/dataset"
	"github.com/shopspring/decimal"
)

// MoneyStep 去掉货币符号和千分位，转为浮点数
type MoneyStep struct {
	Columns []string
}

func (s *MoneyStep) Name() string { return "money" }

func (s *MoneyStep) Apply(ds *dataset.Dataset) (*dataset.Dataset, []Stats) {
	return mapColumns(ds, s.Name(), s.Columns, ParseMoney)
}

// ParseMoney 解析单个金额，空值和空白文本为 0，第二个返回值表示无法解析而被置为 0
func ParseMoney(v dataset.Value) (dataset.Value, bool) {
	switch v.Kind() {
	case dataset.KindNull:
		return dataset.Float(0), true
	case dataset.KindFloat:
		return v, false
	case dataset.KindInt:
		return dataset.Float(float64(v.Int())), false
	}

	digits := stripMoney(v.String())
	if digits == "" {
		return dataset.Float(0), false
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return dataset.Float(0), true
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return dataset.Float(0), true
	}
	return dataset.Float(f), false
}

// stripMoney 只保留数字、小数点和开头的负号
func stripMoney(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
