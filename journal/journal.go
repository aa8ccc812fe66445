package journal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var bucketRuns = []byte("runs")

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run 一次导入的记录
type Run struct {
	ID          string        `msgpack:"id"`
	Dataset     string        `msgpack:"dataset"`
	Table       string        `msgpack:"table"`
	Driver      string        `msgpack:"driver"`
	Status      string        `msgpack:"status"`
	Stage       string        `msgpack:"stage,omitempty"` // 失败的阶段
	Error       string        `msgpack:"error,omitempty"`
	StartedAt   time.Time     `msgpack:"startedAt"`
	Duration    time.Duration `msgpack:"duration"`
	RowsLoaded  int           `msgpack:"rowsLoaded"`
	RowsSent    int           `msgpack:"rowsSent"` // 失败前已发送的行数
	RowsWritten int64         `msgpack:"rowsWritten"`
	RowsInTable int64         `msgpack:"rowsInTable"`
	Fingerprint string        `msgpack:"fingerprint,omitempty"`
}

type Options struct {
	// Path bbolt 文件路径，为空时不记录
	Path string `cfg:"path"`

	// Timeout 获取文件锁的等待时间
	Timeout time.Duration `cfg:"timeout" def:"1s"`
}

type Journal struct {
	db *bolt.DB
}

func Open(options *Options) (*Journal, error) {
	directory := filepath.Dir(options.Path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", directory)
	}

	db, err := bolt.Open(options.Path, 0644, &bolt.Options{Timeout: options.Timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt.Open failed. path: %s", options.Path)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket failed")
	}

	return &Journal{db: db}, nil
}

// Append 写入一条记录，ID 相同时覆盖
func (j *Journal) Append(run *Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	buf, err := msgpack.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "msgpack.Marshal failed")
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(run.ID), buf)
	})
}

// List 按 ID 倒序返回最近的 limit 条记录，limit <= 0 时返回全部
//
// ID 为 uuid v7，倒序即时间倒序。
func (j *Journal) List(limit int) ([]*Run, error) {
	var runs []*Run
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run Run
			if err := msgpack.Unmarshal(v, &run); err != nil {
				return errors.Wrapf(err, "msgpack.Unmarshal failed. key: %s", k)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	return runs, err
}

func (j *Journal) Close() error {
	return j.db.Close()
}
