package rdb

import (
	"context"
	"strings"

	"github.com/hatlonely/ecomingest/dataset"
)

type InsertOptions struct {
	// BatchSize 每条 INSERT 语句包含的行数，为 1 时逐行插入
	BatchSize int `cfg:"batchSize" def:"100" validate:"gte=0"`
}

// NormalizeRow 转换为绑定参数，null 和空白文本绑定为 NULL，时间戳绑定为规范文本
func NormalizeRow(row []dataset.Value) []any {
	args := make([]any, len(row))
	for i, v := range row {
		if v.Kind() == dataset.KindText && strings.TrimSpace(v.Text()) == "" {
			continue
		}
		args[i] = v.Any()
	}
	return args
}

// InsertAll 在一个事务中插入 ds 的所有行，提交成功后返回插入的行数
//
// 任意一批失败时回滚整个事务并返回 *InsertError。
func (s *SQL) InsertAll(ctx context.Context, table string, ds *dataset.Dataset, options *InsertOptions) (int64, error) {
	total := ds.NumRows()
	if total == 0 {
		return 0, nil
	}

	batchSize := 100
	if options != nil && options.BatchSize > 0 {
		batchSize = options.BatchSize
	}
	columns := ds.Columns()
	batchSize = s.dialect.batchRows(batchSize, len(columns))

	insertErr := func(row, inserted int, err error) error {
		return &InsertError{Table: table, Row: row, Inserted: inserted, Total: total, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, insertErr(1, 0, err)
	}

	statements := map[int]string{}
	for start := 0; start < total; start += batchSize {
		end := min(start+batchSize, total)
		n := end - start

		statement, ok := statements[n]
		if !ok {
			statement = s.dialect.Insert(table, columns, n)
			statements[n] = statement
		}

		args := make([]any, 0, n*len(columns))
		for i := start; i < end; i++ {
			args = append(args, NormalizeRow(ds.Row(i))...)
		}

		if _, err := tx.ExecContext(ctx, statement, args...); err != nil {
			_ = tx.Rollback()
			return 0, insertErr(start+1, start, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, insertErr(total, total, err)
	}
	return int64(total), nil
}
