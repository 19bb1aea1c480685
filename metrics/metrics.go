// Package metrics 定义评分流水线与查询服务的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder 持有一组指标。每个 Recorder 注册到自己的 Registry，测试之间互不干扰。
type Recorder struct {
	Registry *prometheus.Registry

	PipelineRuns      *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	TableRows         *prometheus.GaugeVec
	ModelIterations   prometheus.Gauge
	ChurnProbExtremes *prometheus.GaugeVec
	Lookups           *prometheus.CounterVec
}

// NewRecorder 创建并注册全部指标
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		Registry: reg,
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_pipeline_runs_total",
				Help: "Total number of scoring pipeline runs by outcome",
			},
			[]string{"status"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "churn_pipeline_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		TableRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "churn_table_rows",
				Help: "Row counts of the source, joined and scored tables from the last run",
			},
			[]string{"table"},
		),
		ModelIterations: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "churn_model_iterations",
				Help: "Newton iterations used by the last successful fit",
			},
		),
		ChurnProbExtremes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "churn_prob_extreme",
				Help: "Highest and lowest churn probability of the last scored table",
			},
			[]string{"bound"},
		),
		Lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_lookups_total",
				Help: "Total number of churn probability lookups by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveStage 记录一个阶段耗时
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFinished 记录一次运行结果
func (r *Recorder) RunFinished(err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.PipelineRuns.WithLabelValues(status).Inc()
}

// SetRows 记录表行数
func (r *Recorder) SetRows(table string, n int) {
	if r == nil {
		return
	}
	r.TableRows.WithLabelValues(table).Set(float64(n))
}

// Lookup 记录一次查询（result: hit / miss）
func (r *Recorder) Lookup(found bool) {
	if r == nil {
		return
	}
	result := "hit"
	if !found {
		result = "miss"
	}
	r.Lookups.WithLabelValues(result).Inc()
}

// WriteTextfile 以 textfile collector 格式写出全部指标，供批处理任务在退出前导出。
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
