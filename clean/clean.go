package clean

import (
	"github.com/hatlonely/ecomingest/cfg"
	"github.com/hatlonely/ecomingest/dataset"
	"github.com/pkg/errors"
)

type Options struct {
	// TimestampColumns 解析为时间戳的列
	TimestampColumns []string `cfg:"timestampColumns" def:"order_date"`

	// MoneyColumns 去除货币符号后转为浮点数的列
	MoneyColumns []string `cfg:"moneyColumns" def:"taxful_total_price,taxless_total_price"`

	// TruncateColumns 列名到最大字符数的映射
	TruncateColumns map[string]int `cfg:"truncateColumns" def:"products=5000"`
}

// Stats 单个步骤在单列上的处理统计
type Stats struct {
	Step    string
	Column  string
	Changed int // 值被改写的行数
	Coerced int // 无法解析而被置为 null 或 0 的行数
}

// Step 一个纯函数式的清洗步骤，不修改输入
type Step interface {
	Name() string
	Apply(ds *dataset.Dataset) (*dataset.Dataset, []Stats)
}

type Cleaner struct {
	steps []Step
}

func NewCleanerWithOptions(options *Options) (*Cleaner, error) {
	if options == nil {
		options = &Options{}
		if err := cfg.SetDefaults(options); err != nil {
			return nil, errors.WithMessage(err, "cfg.SetDefaults failed")
		}
	}
	for column, limit := range options.TruncateColumns {
		if limit < 0 {
			return nil, errors.Errorf("invalid truncate limit %d for column %q", limit, column)
		}
	}

	return NewCleaner(
		&TimestampStep{Columns: options.TimestampColumns},
		&MoneyStep{Columns: options.MoneyColumns},
		&TruncateStep{Limits: options.TruncateColumns},
	), nil
}

func NewCleaner(steps ...Step) *Cleaner {
	return &Cleaner{steps: steps}
}

// Apply 依次执行所有步骤，返回新的数据集
func (c *Cleaner) Apply(ds *dataset.Dataset) (*dataset.Dataset, []Stats) {
	var stats []Stats
	for _, step := range c.steps {
		var s []Stats
		ds, s = step.Apply(ds)
		stats = append(stats, s...)
	}
	return ds, stats
}

// mapColumns 对存在的列逐个执行 fn，fn 返回新值以及该值是否被强制转换
func mapColumns(ds *dataset.Dataset, step string, columns []string, fn func(dataset.Value) (dataset.Value, bool)) (*dataset.Dataset, []Stats) {
	var stats []Stats
	for _, column := range columns {
		if !ds.HasColumn(column) {
			continue
		}
		s := Stats{Step: step, Column: column}
		ds, _ = ds.MapColumn(column, func(v dataset.Value) dataset.Value {
			nv, coerced := fn(v)
			if coerced {
				s.Coerced++
			}
			if !nv.Equal(v) {
				s.Changed++
			}
			return nv
		})
		stats = append(stats, s)
	}
	return ds, stats
}
