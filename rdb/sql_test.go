package rdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatlonely/ecomingest/cfg"
	"github.com/hatlonely/ecomingest/dataset"
	"github.com/hatlonely/ecomingest/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestSQL(path string) (*SQL, error) {
	options := &SQLOptions{Driver: DriverSQLite, Database: path}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, err
	}
	return NewSQLWithOptions(context.Background(), options)
}

func ordersDataset() *dataset.Dataset {
	day := time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)
	ds, err := dataset.New(
		[]string{"order_date", "taxful_total_price", "category", "geoip.city_name", "quantity"},
		[][]dataset.Value{
			{dataset.Timestamp(day), dataset.Float(1234.56), dataset.Text("Books"), dataset.Text("Cairo"), dataset.Int(2)},
			{dataset.Null(), dataset.Float(0), dataset.Text("Toys"), dataset.Text("   "), dataset.Null()},
			{dataset.Timestamp(day.Add(90 * time.Minute)), dataset.Float(10), dataset.Null(), dataset.Null(), dataset.Int(1)},
		},
	)
	if err != nil {
		panic(err)
	}
	return ds
}

func TestNewSQLWithOptions(t *testing.T) {
	Convey("测试 NewSQLWithOptions", t, func() {
		Convey("sqlite 连接成功", func() {
			s, err := newTestSQL(filepath.Join(t.TempDir(), "test.db"))
			So(err, ShouldBeNil)
			defer s.Close()

			name, err := s.CurrentDatabase(context.Background())
			So(err, ShouldBeNil)
			So(name, ShouldEndWith, "test.db")
		})

		Convey("无法打开数据库文件", func() {
			_, err := newTestSQL(filepath.Join(t.TempDir(), "missing", "test.db"))
			So(errors.Is(err, ErrConnection), ShouldBeTrue)

			var connErr *ConnectionError
			So(errors.As(err, &connErr), ShouldBeTrue)
			So(connErr.Driver, ShouldEqual, DriverSQLite)
		})

		Convey("不支持的驱动", func() {
			_, err := NewSQLWithOptions(context.Background(), &SQLOptions{Driver: "oracle"})
			So(errors.Is(err, ErrConnection), ShouldBeTrue)
		})
	})
}

func TestEnsureTable(t *testing.T) {
	Convey("测试 EnsureTable", t, func() {
		ctx := context.Background()
		s, err := newTestSQL(filepath.Join(t.TempDir(), "test.db"))
		So(err, ShouldBeNil)
		defer s.Close()

		sch := schema.Infer(ordersDataset())

		Convey("重复调用没有副作用", func() {
			So(s.EnsureTable(ctx, "orders", sch), ShouldBeNil)
			So(s.EnsureTable(ctx, "orders", sch), ShouldBeNil)

			columns, ok := s.TableColumns(ctx, "orders")
			So(ok, ShouldBeTrue)
			So(columns, ShouldResemble, []string{"id", "order_date", "taxful_total_price", "category", "geoip.city_name", "quantity"})

			recorded, err := s.RecordedSchema(ctx, "orders")
			So(err, ShouldBeNil)
			So(recorded, ShouldNotBeNil)
			So(recorded.Fingerprint, ShouldEqual, sch.Fingerprint())
			So(recorded.Columns, ShouldResemble, sch.Columns)
		})

		Convey("已登记的表结构不一致", func() {
			So(s.EnsureTable(ctx, "orders", sch), ShouldBeNil)

			changed := &schema.Schema{Columns: append([]schema.ColumnDescriptor{}, sch.Columns...)}
			changed.Columns[4] = schema.ColumnDescriptor{Name: "quantity", Type: schema.TypeFloat}
			changed.Columns = append(changed.Columns, schema.ColumnDescriptor{Name: "extra", Type: schema.TypeText})

			err := s.EnsureTable(ctx, "orders", changed)
			So(errors.Is(err, ErrSchemaMismatch), ShouldBeTrue)

			var mismatch *SchemaMismatchError
			So(errors.As(err, &mismatch), ShouldBeTrue)
			So(mismatch.Differences, ShouldResemble, []schema.Difference{
				{Kind: schema.DiffType, Column: "quantity", Want: schema.TypeInt, Got: schema.TypeFloat},
				{Kind: schema.DiffExtra, Column: "extra", Got: schema.TypeText},
			})

			columns, _ := s.TableColumns(ctx, "orders")
			So(columns, ShouldNotContain, "extra")
		})

		Convey("接管未登记的已存在表", func() {
			_, err := s.db.ExecContext(ctx, `CREATE TABLE "legacy" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "a" TEXT, "b" TEXT)`)
			So(err, ShouldBeNil)

			ab := &schema.Schema{Columns: []schema.ColumnDescriptor{{Name: "a", Type: schema.TypeText}, {Name: "b", Type: schema.TypeInt}}}
			So(s.EnsureTable(ctx, "legacy", ab), ShouldBeNil)

			recorded, err := s.RecordedSchema(ctx, "legacy")
			So(err, ShouldBeNil)
			So(recorded.Columns, ShouldResemble, ab.Columns)

			ac := &schema.Schema{Columns: []schema.ColumnDescriptor{{Name: "a", Type: schema.TypeText}, {Name: "c", Type: schema.TypeText}}}
			So(errors.Is(s.EnsureTable(ctx, "legacy", ac), ErrSchemaMismatch), ShouldBeTrue)
		})

		Convey("未登记的表列名不一致", func() {
			_, err := s.db.ExecContext(ctx, `CREATE TABLE "other" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "x" TEXT)`)
			So(err, ShouldBeNil)
			So(errors.Is(s.EnsureTable(ctx, "other", sch), ErrSchemaMismatch), ShouldBeTrue)
		})

		Convey("建表失败", func() {
			dup := &schema.Schema{Columns: []schema.ColumnDescriptor{{Name: "id", Type: schema.TypeInt}}}
			err := s.EnsureTable(ctx, "broken", dup)
			So(errors.Is(err, ErrSchemaCreation), ShouldBeTrue)

			var createErr *SchemaCreationError
			So(errors.As(err, &createErr), ShouldBeTrue)
			So(createErr.Statement, ShouldStartWith, `CREATE TABLE IF NOT EXISTS "broken"`)
		})

		Convey("不登记表结构", func() {
			s.options.DisableRegistry = true
			So(s.EnsureTable(ctx, "orders", sch), ShouldBeNil)
			So(s.EnsureTable(ctx, "orders", sch), ShouldBeNil)
			_, ok := s.TableColumns(ctx, "ingest_schemas")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestInsertAll(t *testing.T) {
	Convey("测试 InsertAll", t, func() {
		ctx := context.Background()
		s, err := newTestSQL(filepath.Join(t.TempDir(), "test.db"))
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("写入后读回", func() {
			ds := ordersDataset()
			So(s.EnsureTable(ctx, "orders", schema.Infer(ds)), ShouldBeNil)

			n, err := s.InsertAll(ctx, "orders", ds, &InsertOptions{BatchSize: 2})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			count, err := s.Count(ctx, "orders")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 3)

			records, err := s.Query(ctx, `SELECT * FROM "orders" ORDER BY "id"`)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 3)

			So(records[0]["id"], ShouldEqual, int64(1))
			So(records[0]["order_date"], ShouldEqual, "2020-03-15 00:00:00")
			So(records[0]["taxful_total_price"], ShouldEqual, 1234.56)
			So(records[0]["geoip.city_name"], ShouldEqual, "Cairo")
			So(records[0]["quantity"], ShouldEqual, int64(2))

			So(records[1]["order_date"], ShouldBeNil)
			So(records[1]["taxful_total_price"], ShouldEqual, 0.0)
			So(records[1]["geoip.city_name"], ShouldBeNil)
			So(records[1]["quantity"], ShouldBeNil)

			So(records[2]["order_date"], ShouldEqual, "2020-03-15 01:30:00")
			So(records[2]["category"], ShouldBeNil)

			found, err := s.Query(ctx, `SELECT COUNT(*) AS n FROM "orders" WHERE "category" = ?`, "Toys")
			So(err, ShouldBeNil)
			So(found[0]["n"], ShouldEqual, int64(1))
		})

		Convey("失败时回滚", func() {
			_, err := s.db.ExecContext(ctx, `CREATE TABLE "orders" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "qty" INTEGER CHECK ("qty" >= 0))`)
			So(err, ShouldBeNil)

			ds, err := dataset.New([]string{"qty"}, [][]dataset.Value{
				{dataset.Int(1)}, {dataset.Int(2)}, {dataset.Int(-1)}, {dataset.Int(4)},
			})
			So(err, ShouldBeNil)
			So(s.EnsureTable(ctx, "orders", schema.Infer(ds)), ShouldBeNil)

			for _, c := range []struct {
				batchSize int
				row       int
				inserted  int
			}{
				{1, 3, 2},
				{2, 3, 2},
				{3, 1, 0},
			} {
				n, err := s.InsertAll(ctx, "orders", ds, &InsertOptions{BatchSize: c.batchSize})
				So(n, ShouldEqual, 0)
				So(errors.Is(err, ErrInsert), ShouldBeTrue)

				var insertErr *InsertError
				So(errors.As(err, &insertErr), ShouldBeTrue)
				So(insertErr.Row, ShouldEqual, c.row)
				So(insertErr.Inserted, ShouldEqual, c.inserted)
				So(insertErr.Total, ShouldEqual, 4)
				So(insertErr.Error(), ShouldContainSubstring, "CHECK constraint failed")

				count, err := s.Count(ctx, "orders")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
			}
		})

		Convey("空数据集", func() {
			ds, err := dataset.New([]string{"a"}, nil)
			So(err, ShouldBeNil)
			n, err := s.InsertAll(ctx, "orders", ds, nil)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestNormalizeRow(t *testing.T) {
	Convey("测试 NormalizeRow", t, func() {
		day := time.Date(2020, 3, 15, 8, 30, 0, 0, time.UTC)
		So(NormalizeRow([]dataset.Value{
			dataset.Null(), dataset.Text(" \t"), dataset.Text(" x "), dataset.Int(3), dataset.Float(1.5), dataset.Timestamp(day),
		}), ShouldResemble, []any{
			nil, nil, " x ", int64(3), 1.5, "2020-03-15 08:30:00",
		})
	})
}
