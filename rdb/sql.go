package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

type SQLOptions struct {
	Driver         string        `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3 postgres"`
	DSN            string        `cfg:"dsn"`
	Host           string        `cfg:"host" def:"localhost"`
	Port           string        `cfg:"port"`
	Database       string        `cfg:"database"`
	Username       string        `cfg:"username"`
	Password       string        `cfg:"password"`
	Charset        string        `cfg:"charset" def:"utf8mb4"`
	SSLMode        string        `cfg:"sslMode" def:"disable"`
	MaxConns       int           `cfg:"maxConns" def:"10"`
	MaxIdle        int           `cfg:"maxIdle" def:"5"`
	ConnectTimeout time.Duration `cfg:"connectTimeout" def:"5s"`

	// SchemaTable 记录已登记表结构的表
	SchemaTable string `cfg:"schemaTable" def:"ingest_schemas"`
	// DisableRegistry 不登记表结构，只通过列名检查已存在的表
	DisableRegistry bool `cfg:"disableRegistry"`
}

type SQL struct {
	db      *sql.DB
	driver  string
	dialect *Dialect
	options *SQLOptions

	orm *gorm.DB
}

func defaultPort(driver string) string {
	switch driver {
	case DriverPostgres:
		return "5432"
	default:
		return "3306"
	}
}

// address 用于日志和错误信息，不包含密码
func (o *SQLOptions) address() string {
	if o.Driver == DriverSQLite {
		return o.Database
	}
	port := o.Port
	if port == "" {
		port = defaultPort(o.Driver)
	}
	return net.JoinHostPort(o.Host, port) + "/" + o.Database
}

func (o *SQLOptions) dsn() (string, error) {
	if o.DSN != "" {
		return o.DSN, nil
	}
	port := o.Port
	if port == "" {
		port = defaultPort(o.Driver)
	}

	switch o.Driver {
	case DriverMySQL:
		c := mysql.NewConfig()
		c.User = o.Username
		c.Passwd = o.Password
		c.Net = "tcp"
		c.Addr = net.JoinHostPort(o.Host, port)
		c.DBName = o.Database
		c.ParseTime = true
		c.Loc = time.UTC
		c.Timeout = o.ConnectTimeout
		if o.Charset != "" {
			c.Params = map[string]string{"charset": o.Charset}
		}
		return c.FormatDSN(), nil
	case DriverSQLite:
		return o.Database, nil
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%s dbname=%s sslmode=%s", o.Host, port, o.Database, o.SSLMode)
		if o.Username != "" {
			dsn += fmt.Sprintf(" user=%s", o.Username)
		}
		if o.Password != "" {
			dsn += " password=" + pgQuote(o.Password)
		}
		if o.ConnectTimeout > 0 {
			dsn += fmt.Sprintf(" connect_timeout=%d", int(o.ConnectTimeout.Seconds()+0.5))
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", o.Driver)
	}
}

// pgQuote 按 libpq 连接串规则引用值
func pgQuote(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// NewSQLWithOptions 打开连接并 ping，任何失败都返回 *ConnectionError
func NewSQLWithOptions(ctx context.Context, options *SQLOptions) (*SQL, error) {
	connErr := func(err error) error {
		return &ConnectionError{Driver: options.Driver, Address: options.address(), Err: err}
	}

	dialect, err := DialectOf(options.Driver)
	if err != nil {
		return nil, connErr(err)
	}
	dsn, err := options.dsn()
	if err != nil {
		return nil, connErr(err)
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, connErr(err)
	}

	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MaxIdle)

	pingCtx := ctx
	if options.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, options.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, connErr(err)
	}

	return &SQL{
		db:      db,
		driver:  options.Driver,
		dialect: dialect,
		options: options,
	}, nil
}

func (s *SQL) Driver() string { return s.driver }
func (s *SQL) Dialect() *Dialect { return s.dialect }
func (s *SQL) Address() string { return s.options.address() }

func (s *SQL) Close() error {
	return s.db.Close()
}

// CurrentDatabase 当前连接的数据库名，sqlite 返回数据库文件路径
func (s *SQL) CurrentDatabase(ctx context.Context) (string, error) {
	var query string
	switch s.driver {
	case DriverMySQL:
		query = "SELECT DATABASE()"
	case DriverPostgres:
		query = "SELECT current_database()"
	default:
		query = "SELECT file FROM pragma_database_list WHERE name = 'main'"
	}

	var name sql.NullString
	if err := s.db.QueryRowContext(ctx, query).Scan(&name); err != nil {
		return "", err
	}
	return name.String, nil
}

// Count 表的总行数
func (s *SQL) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.Quote(table)).Scan(&n)
	return n, err
}

// Exec 执行语句，返回影响的行数，参数统一使用 ? 占位符
func (s *SQL) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query 执行查询，参数统一使用 ? 占位符
func (s *SQL) Query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, err
	}

	record := make(Record, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			record[col] = string(b)
		} else {
			record[col] = values[i]
		}
	}
	return record, nil
}
