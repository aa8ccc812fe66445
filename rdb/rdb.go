package rdb

import (
	"fmt"
	"strings"

	"github.com/hatlonely/ecomingest/schema"
	"github.com/pkg/errors"
)

var (
	ErrConnection     = errors.New("connection error")
	ErrSchemaCreation = errors.New("schema creation error")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrInsert         = errors.New("insert error")
)

// Record 查询结果中的一行，[]byte 已转换为 string
type Record map[string]any

// ConnectionError 打开连接或 ping 失败
type ConnectionError struct {
	Driver  string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s %s failed: %v", e.Driver, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error        { return e.Err }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// SchemaCreationError 建表或者登记表结构失败
type SchemaCreationError struct {
	Table     string
	Statement string
	Err       error
}

func (e *SchemaCreationError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("ensure table %s failed: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("ensure table %s failed: %v, statement [%s]", e.Table, e.Err, e.Statement)
}

func (e *SchemaCreationError) Unwrap() error        { return e.Err }
func (e *SchemaCreationError) Is(target error) bool { return target == ErrSchemaCreation }

// SchemaMismatchError 已存在的表与本次数据的列不一致，表不会被修改
type SchemaMismatchError struct {
	Table       string
	Differences []schema.Difference
}

func (e *SchemaMismatchError) Error() string {
	parts := make([]string, len(e.Differences))
	for i, d := range e.Differences {
		parts[i] = d.String()
	}
	return fmt.Sprintf("table %s schema mismatch: %s", e.Table, strings.Join(parts, "; "))
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// InsertError 插入失败，事务已回滚
//
// Row 为失败批次的第一行（从 1 开始），Inserted 为失败前已发送的行数，
// 回滚后这些行不会保留。
type InsertError struct {
	Table    string
	Row      int
	Inserted int
	Total    int
	Err      error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert into %s failed at row %d (%d/%d rows sent): %v", e.Table, e.Row, e.Inserted, e.Total, e.Err)
}

func (e *InsertError) Unwrap() error        { return e.Err }
func (e *InsertError) Is(target error) bool { return target == ErrInsert }
