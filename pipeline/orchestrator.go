package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/metrics"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/pkg/logger"
)

// DefaultOutput 是评分表的默认输出路径
const DefaultOutput = "data_with_churn_prob.csv"

// Sources 是两张原始表的路径
type Sources struct {
	CustomerPath string
	PersonalPath string
}

// Result 是一次成功运行的产物
type Result struct {
	RunID   string
	Table   *core.ScoredTable
	Model   *model.FittedModel
	Summary Summary
}

// Orchestrator 串联 合并 → 编码 → 拟合 → 预测 → 持久化 → 发布。
//
// 同步执行、无后台 goroutine。相同输入重复运行得到逐字节相同的输出文件。
// 任一阶段失败时不会留下部分写入的输出文件。
type Orchestrator struct {
	Encoder   *feature.Encoder
	Trainer   *model.Trainer
	Output    string
	Publisher Publisher // 可选
	Logger    logger.Logger
	Metrics   *metrics.Recorder // 可选
	Stages    []Stage           // 为空时使用 DefaultStages()
}

// NewOrchestrator 创建使用默认编码器与收敛参数的 Orchestrator
func NewOrchestrator(output string, log logger.Logger) *Orchestrator {
	if output == "" {
		output = DefaultOutput
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Orchestrator{
		Encoder: feature.NewEncoder(),
		Trainer: model.NewTrainer(),
		Output:  output,
		Logger:  log,
	}
}

// Build 执行一次完整的评分运行。
func (o *Orchestrator) Build(ctx context.Context, src Sources) (*Result, error) {
	log := o.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	run := &Run{
		ID:        uuid.NewString(),
		Sources:   src,
		Encoder:   o.Encoder,
		Trainer:   o.Trainer,
		Output:    o.Output,
		Publisher: o.Publisher,
		Logger:    log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
	stages := o.Stages
	if len(stages) == 0 {
		stages = DefaultStages()
	}

	run.Logger.Info("scoring run started", map[string]interface{}{
		"run_id":   run.ID,
		"customer": src.CustomerPath,
		"personal": src.PersonalPath,
		"output":   o.Output,
	})

	p := &Pipeline{Stages: stages, Metrics: o.Metrics}
	err := p.Execute(ctx, run)
	o.Metrics.RunFinished(err)
	if err != nil {
		return nil, err
	}

	summary := Summarize(run)
	o.record(summary, run)
	fields := summary.Fields()
	fields["run_id"] = run.ID
	run.Logger.Info("scoring run finished", fields)

	return &Result{
		RunID:   run.ID,
		Table:   run.Table,
		Model:   run.Model,
		Summary: summary,
	}, nil
}

func (o *Orchestrator) record(s Summary, run *Run) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.SetRows("customer", s.CustomerRows)
	o.Metrics.SetRows("personal", s.PersonalRows)
	o.Metrics.SetRows("joined", s.JoinedRows)
	if run.Table != nil {
		o.Metrics.SetRows("scored", run.Table.Len())
	}
	o.Metrics.ModelIterations.Set(float64(s.Iterations))
	o.Metrics.ChurnProbExtremes.WithLabelValues("max").Set(s.Highest.ChurnProb)
	o.Metrics.ChurnProbExtremes.WithLabelValues("min").Set(s.Lowest.ChurnProb)
}
