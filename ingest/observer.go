package ingest

import (
	"context"
	"time"

	"github.com/hatlonely/ecomingest/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Metrics 封装 prometheus 指标，注册在独立的 registry 上
type Metrics struct {
	registry *prometheus.Registry

	stageCounter  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	rows          *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

func NewMetrics(name string) *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		stageCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_stages_total",
				Help: "Total number of pipeline stages executed",
			},
			[]string{"stage", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"stage"},
		),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_rows",
				Help: "Rows handled by the last run",
			},
			[]string{"kind"},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: name + "_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
		),
	}

	metrics.registry.MustRegister(
		metrics.stageCounter,
		metrics.stageDuration,
		metrics.rows,
		metrics.lastSuccess,
	)

	return metrics
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observer 为每个阶段记录 span、指标和日志
type observer struct {
	logger  log.Logger
	metrics *Metrics
	tracer  trace.Tracer
	options *MetricsOptions
}

func newObserver(options *MetricsOptions, logger log.Logger) *observer {
	return &observer{
		logger:  logger,
		metrics: NewMetrics(options.Name),
		tracer:  otel.Tracer("ecomingest/ingest"),
		options: options,
	}
}

// observeStage 执行一个阶段
func (o *observer) observeStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "ingest."+stage,
		trace.WithAttributes(attribute.String("stage", stage)),
	)
	defer span.End()

	err := fn(ctx)
	duration := time.Since(start)

	span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	o.metrics.stageCounter.WithLabelValues(stage, status).Inc()
	o.metrics.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())

	if err != nil {
		o.logger.ErrorContext(ctx, "stage failed",
			"stage", stage,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
	} else {
		o.logger.InfoContext(ctx, "stage completed",
			"stage", stage,
			"duration_ms", duration.Milliseconds(),
		)
	}

	return err
}

func (o *observer) observeResult(result *Result, err error) {
	o.metrics.rows.WithLabelValues("loaded").Set(float64(result.RowsLoaded))
	o.metrics.rows.WithLabelValues("sent").Set(float64(result.RowsSent))
	o.metrics.rows.WithLabelValues("inserted").Set(float64(result.RowsInserted))
	if err == nil {
		o.metrics.lastSuccess.Set(float64(time.Now().Unix()))
	}
}

// flush 写 textfile 并推送到 Pushgateway，失败只记录日志
func (o *observer) flush(ctx context.Context, table string) {
	if o.options.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(o.options.TextfilePath, o.metrics.registry); err != nil {
			o.logger.WarnContext(ctx, "write metrics textfile failed", "path", o.options.TextfilePath, "error", err.Error())
		}
	}
	if o.options.PushgatewayURL != "" {
		err := push.New(o.options.PushgatewayURL, o.options.Job).
			Gatherer(o.metrics.registry).
			Grouping("table", table).
			PushContext(ctx)
		if err != nil {
			o.logger.WarnContext(ctx, "push metrics failed", "url", o.options.PushgatewayURL, "error", err.Error())
		}
	}
}
