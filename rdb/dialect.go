package rdb

import (
	"strconv"
	"strings"

	"github.com/hatlonely/ecomingest/schema"
	"github.com/pkg/errors"
)

const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// IdentityColumn 每张表自动添加的自增主键列
const IdentityColumn = "id"

// Dialect 不同数据库在建表和插入语句上的差异
type Dialect struct {
	Name      string
	quote     string
	identity  string
	numbered  bool // $1, $2 形式的占位符
	maxParams int  // 单条语句允许的最大绑定参数个数
	types     map[schema.ColumnType]string
}

var dialects = map[string]*Dialect{
	DriverMySQL: {
		Name:      DriverMySQL,
		quote:     "`",
		identity:  "INT AUTO_INCREMENT PRIMARY KEY",
		maxParams: 65535,
		types: map[schema.ColumnType]string{
			schema.TypeInt:      "INT",
			schema.TypeFloat:    "FLOAT",
			schema.TypeDatetime: "DATETIME",
			schema.TypeText:     "TEXT",
		},
	},
	DriverSQLite: {
		Name:      DriverSQLite,
		quote:     `"`,
		identity:  "INTEGER PRIMARY KEY AUTOINCREMENT",
		maxParams: 32766,
		types: map[schema.ColumnType]string{
			schema.TypeInt:      "INTEGER",
			schema.TypeFloat:    "REAL",
			schema.TypeDatetime: "TEXT",
			schema.TypeText:     "TEXT",
		},
	},
	DriverPostgres: {
		Name:      DriverPostgres,
		quote:     `"`,
		identity:  "SERIAL PRIMARY KEY",
		numbered:  true,
		maxParams: 65535,
		types: map[schema.ColumnType]string{
			schema.TypeInt:      "BIGINT",
			schema.TypeFloat:    "DOUBLE PRECISION",
			schema.TypeDatetime: "TIMESTAMP",
			schema.TypeText:     "TEXT",
		},
	},
}

func DialectOf(driver string) (*Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, errors.Errorf("unsupported driver: %s", driver)
	}
	return d, nil
}

// Quote 引用标识符，标识符内的引号字符会被转义
func (d *Dialect) Quote(name string) string {
	return d.quote + strings.ReplaceAll(name, d.quote, d.quote+d.quote) + d.quote
}

// Placeholder 第 i 个绑定参数的占位符，i 从 1 开始
func (d *Dialect) Placeholder(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (d *Dialect) ColumnType(t schema.ColumnType) string {
	if typ, ok := d.types[t]; ok {
		return typ
	}
	return d.types[schema.TypeText]
}

// CreateTable 生成 CREATE TABLE IF NOT EXISTS 语句，首列为自增主键
func (d *Dialect) CreateTable(table string, s *schema.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(d.Quote(table))
	b.WriteString(" (\n  ")
	b.WriteString(d.Quote(IdentityColumn))
	b.WriteString(" ")
	b.WriteString(d.identity)
	for _, c := range s.Columns {
		b.WriteString(",\n  ")
		b.WriteString(d.Quote(c.Name))
		b.WriteString(" ")
		b.WriteString(d.ColumnType(c.Type))
	}
	b.WriteString("\n)")
	return b.String()
}

// Insert 生成插入 rows 行的多值 INSERT 语句
func (d *Dialect) Insert(table string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Quote(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteString(")")
	}
	return b.String()
}

// Rebind 将 ? 占位符替换为当前数据库的形式，引号内的 ? 保持不变
func (d *Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	var inQuote rune
	n := 1
	for _, r := range query {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			inQuote = r
		case r == '?':
			b.WriteString(d.Placeholder(n))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// batchRows 在参数个数限制内，每批最多插入的行数
func (d *Dialect) batchRows(batchSize, columns int) int {
	if columns == 0 {
		return batchSize
	}
	if limit := d.maxParams / columns; limit < batchSize {
		if limit < 1 {
			return 1
		}
		return limit
	}
	return batchSize
}
