// Package pipeline 实现批量评分流水线：
// 读取两张原始表 → 按 CustomerId 合并 → 编码 → 拟合 → 预测 → 写出评分表 →（可选）发布。
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/metrics"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/pkg/logger"
)

// Stage 是 Pipeline 的最小执行单元。
// 每个 Stage 读取 Run 中前序阶段的产物，并把自己的产物写回 Run。
type Stage interface {
	Name() string
	Run(ctx context.Context, run *Run) error
}

// Publisher 把评分表推送到外部存储（store.ScorePublisher 实现此接口）。
type Publisher interface {
	Name() string
	Publish(ctx context.Context, table *core.ScoredTable) (int, error)
}

// Run 是一次评分运行的全部状态：依赖 + 各阶段产物。
// 只在单个 goroutine 中按阶段顺序读写。
type Run struct {
	ID      string
	Sources Sources

	Encoder   *feature.Encoder
	Trainer   *model.Trainer
	Output    string
	Publisher Publisher
	Logger    logger.Logger

	Customer *core.Table
	Personal *core.Table
	Joined   *core.Table
	Join     JoinStats

	Records      []core.CustomerRecord
	Labels       []float64
	ExitedValues []string
	X            *feature.DesignMatrix

	Model     *model.FittedModel
	Table     *core.ScoredTable
	Published int
}

// Pipeline 按顺序执行 Stage 链，任一阶段失败即中止。
type Pipeline struct {
	Stages  []Stage
	Metrics *metrics.Recorder
}

// Execute 依次运行所有阶段。
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	if run.Logger == nil {
		run.Logger = logger.NewNoOpLogger()
	}
	log := run.Logger
	for _, stage := range p.Stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		log.Debug("stage started", map[string]interface{}{
			"run_id": run.ID,
			"stage":  stage.Name(),
		})
		start := time.Now()
		err := stage.Run(ctx, run)
		elapsed := time.Since(start)
		p.Metrics.ObserveStage(stage.Name(), elapsed)
		if err != nil {
			log.WithError(err).Error("stage failed", map[string]interface{}{
				"run_id": run.ID,
				"stage":  stage.Name(),
			})
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		log.Debug("stage finished", map[string]interface{}{
			"run_id":      run.ID,
			"stage":       stage.Name(),
			"duration_ms": elapsed.Milliseconds(),
		})
	}
	return nil
}
