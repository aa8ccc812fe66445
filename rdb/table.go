package rdb

import (
	"context"

	"github.com/hatlonely/ecomingest/schema"
)

// BuildCreateTable 建表语句
func (s *SQL) BuildCreateTable(table string, sch *schema.Schema) string {
	return s.dialect.CreateTable(table, sch)
}

// EnsureTable 保证目标表存在且与 sch 一致，重复调用没有副作用
//
// 已登记的表结构与 sch 不一致，或者未登记的已存在表列名不一致时返回
// *SchemaMismatchError，不会修改已存在的表。
func (s *SQL) EnsureTable(ctx context.Context, table string, sch *schema.Schema) error {
	createErr := func(statement string, err error) error {
		return &SchemaCreationError{Table: table, Statement: statement, Err: err}
	}

	if !s.options.DisableRegistry {
		recorded, err := s.RecordedSchema(ctx, table)
		if err != nil {
			return createErr("", err)
		}
		if recorded != nil {
			if diffs := sch.Diff(recorded.Schema()); len(diffs) > 0 {
				return &SchemaMismatchError{Table: table, Differences: diffs}
			}
		}
	}

	if names, ok := s.TableColumns(ctx, table); ok {
		existing := &schema.Schema{}
		for _, name := range names {
			if name != IdentityColumn {
				existing.Columns = append(existing.Columns, schema.ColumnDescriptor{Name: name})
			}
		}
		if diffs := sch.Diff(existing); len(diffs) > 0 {
			return &SchemaMismatchError{Table: table, Differences: diffs}
		}
	} else {
		statement := s.BuildCreateTable(table, sch)
		if _, err := s.Exec(ctx, statement); err != nil {
			return createErr(statement, err)
		}
	}

	if s.options.DisableRegistry {
		return nil
	}
	if err := s.RecordSchema(ctx, table, sch); err != nil {
		return createErr("", err)
	}
	return nil
}

// TableColumns 已存在表的列名，表不存在时第二个返回值为 false
func (s *SQL) TableColumns(ctx context.Context, table string) ([]string, bool) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.dialect.Quote(table)+" LIMIT 0")
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, false
	}
	return columns, true
}
