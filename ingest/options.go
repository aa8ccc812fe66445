package ingest

import (
	"github.com/hatlonely/ecomingest/clean"
	"github.com/hatlonely/ecomingest/dataset"
	"github.com/hatlonely/ecomingest/journal"
	"github.com/hatlonely/ecomingest/lock"
	"github.com/hatlonely/ecomingest/log"
	"github.com/hatlonely/ecomingest/rdb"
)

type DatasetOptions struct {
	// Path 源文件路径
	Path string `cfg:"path" validate:"required"`

	Load dataset.LoadOptions `cfg:"load"`
}

type MetricsOptions struct {
	// Name 指标名前缀
	Name string `cfg:"name" def:"ecomingest"`

	// TextfilePath node exporter textfile collector 目录下的文件，为空时不写
	TextfilePath string `cfg:"textfilePath"`

	// PushgatewayURL 为空时不推送
	PushgatewayURL string `cfg:"pushgatewayURL" validate:"omitempty,url"`

	Job string `cfg:"job" def:"ecomingest"`
}

type Options struct {
	Dataset DatasetOptions `cfg:"dataset"`

	// Table 目标表
	Table string `cfg:"table" def:"orders" validate:"required"`

	Clean    clean.Options     `cfg:"clean"`
	Database rdb.SQLOptions    `cfg:"database"`
	Insert   rdb.InsertOptions `cfg:"insert"`

	// Lock 未配置 endpoint 时不加锁
	Lock lock.RedisLockerOptions `cfg:"lock"`

	// Journal 未配置 path 时不记录
	Journal journal.Options `cfg:"journal"`

	Metrics MetricsOptions `cfg:"metrics"`

	Logger log.Options `cfg:"logger"`
}
