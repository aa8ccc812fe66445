package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hatlonely/ecomingest/cfg"
	"github.com/hatlonely/ecomingest/dataset"
	"github.com/hatlonely/ecomingest/ingest"
	"github.com/hatlonely/ecomingest/journal"
	"github.com/hatlonely/ecomingest/log"
	"github.com/hatlonely/ecomingest/rdb"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

const usage = `usage: ecomingest [flags] [command]

commands:
  load     load the dataset into the destination table (default)
  plan     show the inferred schema and DDL without connecting
  profile  report missing, blank and zero values per column
  ping     check the database connection
  history  list recent runs from the journal

flags:
`

func main() {
	var configFile = flag.StringP("config", "c", "", "configuration file (.yaml, .toml, .ini or .json)")
	var envPrefix = flag.String("env-prefix", "ECOMINGEST", "prefix of environment variables overriding the configuration")
	var datasetPath = flag.StringP("dataset", "d", "", "path of the csv dataset")
	var table = flag.StringP("table", "t", "orders", "destination table")
	var driver = flag.String("driver", "mysql", "mysql|sqlite3|postgres")
	var dsn = flag.String("dsn", "", "data source name, overrides host/port/database/user/password")
	var host = flag.String("host", "localhost", "database host")
	var port = flag.String("port", "", "database port")
	var database = flag.String("database", "", "database name, or file path for sqlite3")
	var username = flag.StringP("user", "u", "", "database user")
	var password = flag.StringP("password", "p", "", "database password")
	var batchSize = flag.Int("batch-size", 100, "rows per insert statement")
	var lockEndpoint = flag.String("lock", "", "redis host:port used to serialize runs per table")
	var journalPath = flag.String("journal", "", "bbolt file recording every run")
	var logLevel = flag.String("log-level", "info", "debug|info|warn|error")
	var limit = flag.Int("limit", 10, "number of runs shown by history")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	options := &ingest.Options{}
	if err := cfg.Load(*configFile, options, cfg.WithEnvPrefix(*envPrefix), cfg.WithoutValidate()); err != nil {
		fail(err)
	}

	// 命令行显式指定的参数覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dataset":
			options.Dataset.Path = *datasetPath
		case "table":
			options.Table = *table
		case "driver":
			options.Database.Driver = *driver
		case "dsn":
			options.Database.DSN = *dsn
		case "host":
			options.Database.Host = *host
		case "port":
			options.Database.Port = *port
		case "database":
			options.Database.Database = *database
		case "user":
			options.Database.Username = *username
		case "password":
			options.Database.Password = *password
		case "batch-size":
			options.Insert.BatchSize = *batchSize
		case "lock":
			options.Lock.Endpoint = *lockEndpoint
		case "journal":
			options.Journal.Path = *journalPath
		case "log-level":
			options.Logger.Level = *logLevel
		}
	})

	logger, err := log.NewLogWithOptions(&options.Logger)
	if err != nil {
		fail(err)
	}
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "load"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "load":
		err = load(ctx, options, logger)
	case "plan":
		err = plan(ctx, options, logger)
	case "profile":
		err = profile(options)
	case "ping":
		err = ping(ctx, options)
	case "history":
		err = history(options, *limit)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "ecomingest: %v\n", err)
	os.Exit(1)
}

func load(ctx context.Context, options *ingest.Options, logger log.Logger) error {
	p, err := ingest.NewPipelineWithOptions(options, logger)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx)
	if err != nil {
		var insertErr *rdb.InsertError
		if errors.As(err, &insertErr) {
			return errors.WithMessagef(err, "nothing committed, %s of %s rows were sent before the failure",
				humanize.Comma(int64(insertErr.Inserted)), humanize.Comma(int64(insertErr.Total)))
		}
		return err
	}

	fmt.Printf("loaded %s rows from %s into %s.%s in %s (table now has %s rows, run %s)\n",
		humanize.Comma(result.RowsInserted),
		result.Dataset,
		options.Database.Database,
		result.Table,
		result.Duration.Round(time.Millisecond),
		humanize.Comma(result.RowsInTable),
		result.RunID,
	)
	for _, s := range result.Cleaning {
		if s.Coerced > 0 {
			fmt.Printf("  %s: %s values in %s could not be parsed\n", s.Step, humanize.Comma(int64(s.Coerced)), s.Column)
		}
	}
	return nil
}

func plan(ctx context.Context, options *ingest.Options, logger log.Logger) error {
	p, err := ingest.NewPipelineWithOptions(options, logger)
	if err != nil {
		return err
	}

	pl, err := p.DryRun(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("-- %s rows from %s, schema %s\n", humanize.Comma(int64(pl.RowsLoaded)), pl.Dataset, pl.Schema.Fingerprint()[:12])
	for _, s := range pl.Cleaning {
		fmt.Printf("-- %s %s: %d changed, %d coerced\n", s.Step, s.Column, s.Changed, s.Coerced)
	}
	fmt.Println(pl.DDL + ";")
	return nil
}

func profile(options *ingest.Options) error {
	if options.Dataset.Path == "" {
		return errors.New("dataset path is required")
	}
	if err := cfg.SetDefaults(&options.Dataset); err != nil {
		return err
	}

	ds, err := dataset.Load(options.Dataset.Path, &options.Dataset.Load)
	if err != nil {
		return err
	}

	size := ""
	if info, err := os.Stat(options.Dataset.Path); err == nil {
		size = ", " + humanize.Bytes(uint64(info.Size()))
	}
	p := dataset.ProfileOf(ds)
	fmt.Printf("%s: %s rows, %d columns%s\n", options.Dataset.Path, humanize.Comma(int64(p.Rows)), len(p.Columns), size)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tKIND\tNULL\tBLANK\tZERO")
	for _, c := range p.Columns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Kind, humanize.Comma(int64(c.Nulls)), humanize.Comma(int64(c.Blanks)), humanize.Comma(int64(c.Zeros)))
	}
	return w.Flush()
}

func ping(ctx context.Context, options *ingest.Options) error {
	if err := cfg.Validate(&options.Database); err != nil {
		return err
	}

	db, err := rdb.NewSQLWithOptions(ctx, &options.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	name, err := db.CurrentDatabase(ctx)
	if err != nil {
		return errors.Wrap(err, "query current database failed")
	}
	fmt.Printf("connected to %s %s, current database: %s\n", db.Driver(), db.Address(), name)
	return nil
}

func history(options *ingest.Options, limit int) error {
	if options.Journal.Path == "" {
		return errors.New("journal path is required")
	}

	j, err := journal.Open(&options.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.List(limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tTABLE\tSTATUS\tROWS\tDURATION\tERROR")
	for _, r := range runs {
		rows := humanize.Comma(r.RowsWritten)
		if r.Status == journal.StatusFailed {
			rows = fmt.Sprintf("%s/%s sent", humanize.Comma(int64(r.RowsSent)), humanize.Comma(int64(r.RowsLoaded)))
		}
		status := r.Status
		if r.Stage != "" {
			status += " (" + r.Stage + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, humanize.Time(r.StartedAt), r.Table, status, rows, r.Duration.Round(time.Millisecond), firstLine(r.Error))
	}
	return w.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
