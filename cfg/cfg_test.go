package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testDatabase struct {
	Driver   string        `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3 postgres"`
	Host     string        `cfg:"host" def:"localhost"`
	Port     int           `cfg:"port" def:"3306"`
	MaxConns int           `cfg:"maxConns" def:"10"`
	Timeout  time.Duration `cfg:"timeout" def:"5s"`
}

type testConfig struct {
	Table    string         `cfg:"table" def:"orders" validate:"required"`
	Columns  []string       `cfg:"columns" def:"order_date"`
	Limits   map[string]int `cfg:"limits" def:"products=5000"`
	Verbose  bool           `cfg:"verbose"`
	Database testDatabase   `cfg:"database"`
	Ignored  string         `cfg:"-"`
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestLoad(t *testing.T) {
	Convey("测试 Load 方法", t, func() {
		Convey("文件为空时只使用默认值", func() {
			var c testConfig
			So(Load("", &c), ShouldBeNil)
			So(c.Table, ShouldEqual, "orders")
			So(c.Columns, ShouldResemble, []string{"order_date"})
			So(c.Limits, ShouldResemble, map[string]int{"products": 5000})
			So(c.Database.Driver, ShouldEqual, "mysql")
			So(c.Database.Port, ShouldEqual, 3306)
			So(c.Database.Timeout, ShouldEqual, 5*time.Second)
		})

		Convey("加载 YAML 文件", func() {
			path := writeFile(t, "app.yaml", `
table: sales
columns: [created_at, shipped_at]
limits:
  notes: 100
database:
  driver: sqlite3
  host: db.internal
  port: 3307
  timeout: 2s
`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Table, ShouldEqual, "sales")
			So(c.Columns, ShouldResemble, []string{"created_at", "shipped_at"})
			So(c.Limits, ShouldResemble, map[string]int{"notes": 100})
			So(c.Database.Driver, ShouldEqual, "sqlite3")
			So(c.Database.Host, ShouldEqual, "db.internal")
			So(c.Database.Port, ShouldEqual, 3307)
			So(c.Database.MaxConns, ShouldEqual, 10)
			So(c.Database.Timeout, ShouldEqual, 2*time.Second)
		})

		Convey("加载 TOML 文件", func() {
			path := writeFile(t, "app.toml", `
table = "sales"
verbose = true

[database]
driver = "postgres"
port = 5432
`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Verbose, ShouldBeTrue)
			So(c.Database.Driver, ShouldEqual, "postgres")
			So(c.Database.Port, ShouldEqual, 5432)
		})

		Convey("加载 JSON 文件", func() {
			path := writeFile(t, "app.json", `{"table": "sales", "database": {"maxConns": 3}}`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Table, ShouldEqual, "sales")
			So(c.Database.MaxConns, ShouldEqual, 3)
		})

		Convey("加载 INI 文件", func() {
			path := writeFile(t, "app.ini", `
table = sales
columns = a,b

[database]
driver = sqlite3
port = 1234
timeout = 1m
`)
			var c testConfig
			So(Load(path, &c), ShouldBeNil)
			So(c.Table, ShouldEqual, "sales")
			So(c.Columns, ShouldResemble, []string{"a", "b"})
			So(c.Database.Driver, ShouldEqual, "sqlite3")
			So(c.Database.Port, ShouldEqual, 1234)
			So(c.Database.Timeout, ShouldEqual, time.Minute)
		})

		Convey("不支持的扩展名", func() {
			path := writeFile(t, "app.xml", `<table/>`)
			var c testConfig
			So(Load(path, &c), ShouldNotBeNil)
		})

		Convey("文件不存在", func() {
			var c testConfig
			So(Load(filepath.Join(t.TempDir(), "missing.yaml"), &c), ShouldNotBeNil)
		})

		Convey("校验失败", func() {
			path := writeFile(t, "app.yaml", "database:\n  driver: oracle\n")
			var c testConfig
			So(Load(path, &c), ShouldNotBeNil)
		})

		Convey("跳过校验", func() {
			path := writeFile(t, "app.yaml", "database:\n  driver: oracle\n")
			var c testConfig
			So(Load(path, &c, WithoutValidate()), ShouldBeNil)
			So(c.Database.Driver, ShouldEqual, "oracle")
		})

		Convey("环境变量覆盖文件", func() {
			path := writeFile(t, "app.yaml", "table: sales\ndatabase:\n  port: 3307\n")
			t.Setenv("ECOMTEST_TABLE", "returns")
			t.Setenv("ECOMTEST_DATABASE_MAX_CONNS", "7")
			t.Setenv("ECOMTEST_COLUMNS", "x,y")
			t.Setenv("ECOMTEST_LIMITS", "products=10,notes=20")
			var c testConfig
			So(Load(path, &c, WithEnvPrefix("ECOMTEST")), ShouldBeNil)
			So(c.Table, ShouldEqual, "returns")
			So(c.Database.Port, ShouldEqual, 3307)
			So(c.Database.MaxConns, ShouldEqual, 7)
			So(c.Columns, ShouldResemble, []string{"x", "y"})
			So(c.Limits, ShouldResemble, map[string]int{"products": 10, "notes": 20})
		})
	})
}

func TestApplyEnv(t *testing.T) {
	Convey("测试 ApplyEnv 方法", t, func() {
		env := map[string]string{
			"APP_DATABASE_HOST": "10.0.0.1",
			"APP_IGNORED":       "nope",
		}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		Convey("复用已存在的 key，大小写不敏感", func() {
			data := map[string]any{"Database": map[string]any{"port": 1}}
			So(ApplyEnv(&testConfig{}, "APP_", data, lookup), ShouldBeNil)
			So(data["Database"], ShouldResemble, map[string]any{"port": 1, "host": "10.0.0.1"})
			So(data, ShouldNotContainKey, "Ignored")
		})

		Convey("没有环境变量时不修改数据", func() {
			data := map[string]any{}
			So(ApplyEnv(&testConfig{}, "APP", data, noEnv), ShouldBeNil)
			So(data, ShouldBeEmpty)
		})

		Convey("非结构体报错", func() {
			So(ApplyEnv(map[string]any{}, "APP", map[string]any{}, noEnv), ShouldNotBeNil)
		})
	})
}

func TestToEnvName(t *testing.T) {
	Convey("测试 toEnvName 方法", t, func() {
		So(toEnvName("maxConns"), ShouldEqual, "MAX_CONNS")
		So(toEnvName("DSN"), ShouldEqual, "DSN")
		So(toEnvName("timestampColumns"), ShouldEqual, "TIMESTAMP_COLUMNS")
		So(toEnvName("s3Bucket"), ShouldEqual, "S3_BUCKET")
		So(toEnvName("log-level"), ShouldEqual, "LOG_LEVEL")
	})
}
