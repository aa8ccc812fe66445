package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/ecomingest/cfg"
	"github.com/hatlonely/ecomingest/clean"
	"github.com/hatlonely/ecomingest/dataset"
	"github.com/hatlonely/ecomingest/journal"
	"github.com/hatlonely/ecomingest/lock"
	"github.com/hatlonely/ecomingest/log"
	"github.com/hatlonely/ecomingest/rdb"
	"github.com/hatlonely/ecomingest/schema"
	"github.com/pkg/errors"
)

const (
	StageLoad    = "load"
	StageClean   = "clean"
	StageInfer   = "infer"
	StageConnect = "connect"
	StageLock    = "lock"
	StageEnsure  = "ensure_table"
	StageInsert  = "insert"
	StageVerify  = "verify"
)

// Result 一次成功或失败的导入结果，失败时只有已完成阶段的字段有值
type Result struct {
	RunID        string
	Dataset      string
	Table        string
	Driver       string
	StartedAt    time.Time
	Duration     time.Duration
	RowsLoaded   int
	Cleaning     []clean.Stats
	Schema       *schema.Schema
	RowsSent     int   // 失败时为失败前已发送的行数
	RowsInserted int64 // 提交成功的行数
	RowsInTable  int64 // 提交后表中的总行数
	FailedStage  string
}

// Plan 不连接数据库时可以得到的导入计划
type Plan struct {
	Dataset    string
	Table      string
	Driver     string
	RowsLoaded int
	Cleaning   []clean.Stats
	Schema     *schema.Schema
	DDL        string
}

type Pipeline struct {
	options  *Options
	cleaner  *clean.Cleaner
	logger   log.Logger
	observer *observer
}

func NewPipelineWithOptions(options *Options, logger log.Logger) (*Pipeline, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "cfg.SetDefaults failed")
	}
	if err := cfg.Validate(options); err != nil {
		return nil, errors.WithMessage(err, "invalid options")
	}
	if logger == nil {
		logger = log.Default()
	}

	cleaner, err := clean.NewCleanerWithOptions(&options.Clean)
	if err != nil {
		return nil, errors.WithMessage(err, "clean.NewCleanerWithOptions failed")
	}

	p := &Pipeline{
		options: options,
		cleaner: cleaner,
		logger:  logger.WithGroup("ingest"),
	}
	p.observer = newObserver(&options.Metrics, p.logger)
	return p, nil
}

func (p *Pipeline) Metrics() *Metrics {
	return p.observer.metrics
}

// newLocker 未配置 redis 时返回 NopLocker
func (p *Pipeline) newLocker(ctx context.Context) (lock.Locker, func() error, error) {
	if p.options.Lock.Endpoint == "" {
		return lock.NopLocker{}, func() error { return nil }, nil
	}
	locker, err := lock.NewRedisLockerWithOptions(ctx, &p.options.Lock)
	if err != nil {
		return nil, nil, err
	}
	return locker, locker.Close, nil
}

// prepare 加载、清洗并推断表结构，不访问数据库
func (p *Pipeline) prepare(ctx context.Context, stage *string) (*dataset.Dataset, []clean.Stats, *schema.Schema, error) {
	var ds *dataset.Dataset
	var stats []clean.Stats
	var sch *schema.Schema

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageLoad, func(ctx context.Context) error {
			var err error
			ds, err = dataset.Load(p.options.Dataset.Path, &p.options.Dataset.Load)
			return err
		}},
		{StageClean, func(ctx context.Context) error {
			ds, stats = p.cleaner.Apply(ds)
			for _, s := range stats {
				p.logger.DebugContext(ctx, "column cleaned", "step", s.Step, "column", s.Column, "changed", s.Changed, "coerced", s.Coerced)
			}
			return nil
		}},
		{StageInfer, func(ctx context.Context) error {
			sch = schema.Infer(ds)
			return nil
		}},
	}

	for _, step := range steps {
		*stage = step.name
		if err := p.observer.observeStage(ctx, step.name, step.fn); err != nil {
			return nil, nil, nil, errors.WithMessage(err, step.name)
		}
	}
	return ds, stats, sch, nil
}

// DryRun 执行加载、清洗和推断，返回建表语句，不连接数据库
func (p *Pipeline) DryRun(ctx context.Context) (*Plan, error) {
	var stage string
	ds, stats, sch, err := p.prepare(ctx, &stage)
	if err != nil {
		return nil, err
	}

	dialect, err := rdb.DialectOf(p.options.Database.Driver)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Dataset:    p.options.Dataset.Path,
		Table:      p.options.Table,
		Driver:     p.options.Database.Driver,
		RowsLoaded: ds.NumRows(),
		Cleaning:   stats,
		Schema:     sch,
		DDL:        dialect.CreateTable(p.options.Table, sch),
	}, nil
}

// Run 按顺序执行 load, clean, infer, connect, lock, ensure_table, insert, verify
//
// 任意阶段失败都会终止导入。连接和锁在返回前释放，结果在配置了 journal 时记录。
func (p *Pipeline) Run(ctx context.Context) (result *Result, err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "uuid.NewV7 failed")
	}

	result = &Result{
		RunID:     id.String(),
		Dataset:   p.options.Dataset.Path,
		Table:     p.options.Table,
		Driver:    p.options.Database.Driver,
		StartedAt: time.Now(),
	}

	ctx, span := p.observer.tracer.Start(ctx, "ingest.run")
	defer span.End()

	var stage string
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		if err != nil {
			result.FailedStage = stage
			var insertErr *rdb.InsertError
			if errors.As(err, &insertErr) {
				result.RowsSent = insertErr.Inserted
			}
		}
		p.finish(ctx, result, err)
	}()

	p.logger.InfoContext(ctx, "ingest started", "run_id", result.RunID, "dataset", result.Dataset, "table", result.Table, "driver", result.Driver)

	ds, stats, sch, err := p.prepare(ctx, &stage)
	if err != nil {
		return result, err
	}
	result.RowsLoaded = ds.NumRows()
	result.Cleaning = stats
	result.Schema = sch

	observe := func(name string, fn func(context.Context) error) error {
		stage = name
		if err := p.observer.observeStage(ctx, name, fn); err != nil {
			return errors.WithMessage(err, name)
		}
		return nil
	}

	var db *rdb.SQL
	if err := observe(StageConnect, func(ctx context.Context) error {
		var err error
		db, err = rdb.NewSQLWithOptions(ctx, &p.options.Database)
		return err
	}); err != nil {
		return result, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			p.logger.WarnContext(ctx, "close connection failed", "error", err.Error())
		}
	}()

	var release lock.Release
	if err := observe(StageLock, func(ctx context.Context) error {
		locker, closeLocker, err := p.newLocker(ctx)
		if err != nil {
			return err
		}
		release, err = locker.Acquire(ctx, p.options.Table)
		if err != nil {
			_ = closeLocker()
			return err
		}
		inner := release
		release = func(ctx context.Context) error {
			defer closeLocker()
			return inner(ctx)
		}
		return nil
	}); err != nil {
		return result, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			p.logger.WarnContext(ctx, "release lock failed", "error", err.Error())
		}
	}()

	if err := observe(StageEnsure, func(ctx context.Context) error {
		return db.EnsureTable(ctx, p.options.Table, sch)
	}); err != nil {
		return result, err
	}

	if err := observe(StageInsert, func(ctx context.Context) error {
		n, err := db.InsertAll(ctx, p.options.Table, ds, &p.options.Insert)
		if err != nil {
			return err
		}
		result.RowsSent = ds.NumRows()
		result.RowsInserted = n
		return nil
	}); err != nil {
		return result, err
	}

	if err := observe(StageVerify, func(ctx context.Context) error {
		n, err := db.Count(ctx, p.options.Table)
		if err != nil {
			return err
		}
		result.RowsInTable = n
		if n < result.RowsInserted {
			return errors.Errorf("table %s has %d rows after inserting %d", p.options.Table, n, result.RowsInserted)
		}
		return nil
	}); err != nil {
		return result, err
	}

	return result, nil
}

// finish 记录指标、日志和 journal，失败不影响导入结果
func (p *Pipeline) finish(ctx context.Context, result *Result, err error) {
	p.observer.observeResult(result, err)
	p.observer.flush(ctx, result.Table)

	if err != nil {
		p.logger.ErrorContext(ctx, "ingest failed",
			"run_id", result.RunID,
			"stage", result.FailedStage,
			"rows_sent", result.RowsSent,
			"duration_ms", result.Duration.Milliseconds(),
			"error", err.Error(),
		)
	} else {
		p.logger.InfoContext(ctx, "ingest completed",
			"run_id", result.RunID,
			"rows_loaded", result.RowsLoaded,
			"rows_inserted", result.RowsInserted,
			"rows_in_table", result.RowsInTable,
			"duration_ms", result.Duration.Milliseconds(),
		)
	}

	if p.options.Journal.Path == "" {
		return
	}
	if jerr := p.record(result, err); jerr != nil {
		p.logger.WarnContext(ctx, "write journal failed", "path", p.options.Journal.Path, "error", jerr.Error())
	}
}

func (p *Pipeline) record(result *Result, err error) error {
	j, jerr := journal.Open(&p.options.Journal)
	if jerr != nil {
		return jerr
	}
	defer j.Close()

	run := &journal.Run{
		ID:          result.RunID,
		Dataset:     result.Dataset,
		Table:       result.Table,
		Driver:      result.Driver,
		Status:      journal.StatusSucceeded,
		StartedAt:   result.StartedAt,
		Duration:    result.Duration,
		RowsLoaded:  result.RowsLoaded,
		RowsSent:    result.RowsSent,
		RowsWritten: result.RowsInserted,
		RowsInTable: result.RowsInTable,
	}
	if result.Schema != nil {
		run.Fingerprint = result.Schema.Fingerprint()
	}
	if err != nil {
		run.Status = journal.StatusFailed
		run.Stage = result.FailedStage
		run.Error = err.Error()
	}
	return j.Append(run)
}
