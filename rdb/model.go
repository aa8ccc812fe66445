package rdb

import (
	"context"
	"time"

	"github.com/hatlonely/ecomingest/schema"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// TableSchema 已登记的表结构
type TableSchema struct {
	Table       string                    `gorm:"primaryKey;column:table_name;size:191" json:"table"`
	Fingerprint string                    `gorm:"size:64;not null;column:fingerprint" json:"fingerprint"`
	Columns     []schema.ColumnDescriptor `gorm:"type:text;serializer:json;not null;column:definition" json:"columns"`
	CreatedAt   time.Time                 `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt   time.Time                 `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 默认表名，可以通过 SQLOptions.SchemaTable 修改
func (TableSchema) TableName() string {
	return "ingest_schemas"
}

func (t *TableSchema) Schema() *schema.Schema {
	return &schema.Schema{Columns: t.Columns}
}

// registry 在同一个连接池上打开 gorm，首次使用时自动迁移登记表
func (s *SQL) registry(ctx context.Context) (*gorm.DB, error) {
	if s.orm == nil {
		var dialector gorm.Dialector
		switch s.driver {
		case DriverMySQL:
			dialector = gormmysql.New(gormmysql.Config{Conn: s.db})
		case DriverPostgres:
			dialector = postgres.New(postgres.Config{Conn: s.db})
		default:
			dialector = &sqlite.Dialector{Conn: s.db}
		}

		orm, err := gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, errors.Wrap(err, "gorm.Open failed")
		}
		if err := orm.WithContext(ctx).Table(s.options.SchemaTable).AutoMigrate(&TableSchema{}); err != nil {
			return nil, errors.Wrapf(err, "auto migrate %s failed", s.options.SchemaTable)
		}
		s.orm = orm
	}
	return s.orm.WithContext(ctx).Table(s.options.SchemaTable), nil
}

// RecordedSchema 读取已登记的表结构，未登记时返回 nil
func (s *SQL) RecordedSchema(ctx context.Context, table string) (*TableSchema, error) {
	db, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}

	var record TableSchema
	if err := db.Where("table_name = ?", table).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "load schema of %s failed", table)
	}
	return &record, nil
}

// RecordSchema 登记表结构，已存在时覆盖
func (s *SQL) RecordSchema(ctx context.Context, table string, sch *schema.Schema) error {
	db, err := s.registry(ctx)
	if err != nil {
		return err
	}

	record := &TableSchema{
		Table:       table,
		Fingerprint: sch.Fingerprint(),
		Columns:     sch.Columns,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"fingerprint", "definition", "updated_at"}),
	}).Create(record).Error
	return errors.Wrapf(err, "record schema of %s failed", table)
}
