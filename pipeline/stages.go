package pipeline

import (
	"context"
	"sort"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/store"
)

// 阶段名称
const (
	StageLoad    = "load"
	StageJoin    = "join"
	StageCoerce  = "coerce"
	StageLabel   = "label"
	StageEncode  = "encode"
	StageFit     = "fit"
	StagePredict = "predict"
	StagePersist = "persist"
	StagePublish = "publish"
)

// DefaultStages 返回固定顺序的完整阶段链。
// Run.Publisher 为 nil 时 publish 阶段为空操作。
func DefaultStages() []Stage {
	return []Stage{
		&LoadStage{},
		&JoinStage{},
		&CoerceStage{},
		&LabelStage{},
		&EncodeStage{},
		&FitStage{},
		&PredictStage{},
		&PersistStage{},
		&PublishStage{},
	}
}

// LoadStage 依次读取客户表和个人信息表；两者都缺失时报告客户表
type LoadStage struct{}

func (s *LoadStage) Name() string { return StageLoad }

func (s *LoadStage) Run(ctx context.Context, run *Run) error {
	customer, err := store.ReadTable(run.Sources.CustomerPath)
	if err != nil {
		return err
	}
	personal, err := store.ReadTable(run.Sources.PersonalPath)
	if err != nil {
		return err
	}
	run.Customer, run.Personal = customer, personal
	return nil
}

// JoinStage 按 CustomerId 内连接
type JoinStage struct{}

func (s *JoinStage) Name() string { return StageJoin }

func (s *JoinStage) Run(ctx context.Context, run *Run) error {
	joined, stats, err := InnerJoin(run.Customer, run.Personal, core.ColCustomerID)
	if err != nil {
		return err
	}
	// TODO: 未匹配的行目前静默丢弃，只计入 Summary；需要决定是否提供严格模式在丢行时报错。
	if stats.UnmatchedLeft > 0 || stats.UnmatchedRight > 0 {
		run.Logger.Warn("rows dropped by join", map[string]interface{}{
			"run_id":          run.ID,
			"unmatched_left":  stats.UnmatchedLeft,
			"unmatched_right": stats.UnmatchedRight,
		})
	}
	run.Joined, run.Join = joined, stats
	return nil
}

// CoerceStage 把合并表解析为强类型记录
type CoerceStage struct{}

func (s *CoerceStage) Name() string { return StageCoerce }

func (s *CoerceStage) Run(ctx context.Context, run *Run) error {
	records, err := feature.ParseRecords(run.Joined)
	if err != nil {
		return err
	}
	run.Records = records
	return nil
}

// LabelStage 构造 0/1 标签，并记录 Exited 的全部原始取值供人工核对
type LabelStage struct{}

func (s *LabelStage) Name() string { return StageLabel }

func (s *LabelStage) Run(ctx context.Context, run *Run) error {
	run.Labels = feature.Label(run.Records)

	seen := make(map[string]struct{})
	for _, rec := range run.Records {
		seen[rec.Exited] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	run.ExitedValues = values

	run.Logger.Info("exited values", map[string]interface{}{
		"run_id": run.ID,
		"values": values,
	})
	return nil
}

// EncodeStage 构造设计矩阵
type EncodeStage struct{}

func (s *EncodeStage) Name() string { return StageEncode }

func (s *EncodeStage) Run(ctx context.Context, run *Run) error {
	enc := run.Encoder
	if enc == nil {
		enc = feature.NewEncoder()
	}
	X, err := enc.Encode(run.Records)
	if err != nil {
		return err
	}
	run.X = X
	return nil
}

// FitStage 拟合逻辑回归
type FitStage struct{}

func (s *FitStage) Name() string { return StageFit }

func (s *FitStage) Run(ctx context.Context, run *Run) error {
	trainer := run.Trainer
	if trainer == nil {
		trainer = model.NewTrainer()
	}
	fitted, err := trainer.Fit(run.X, run.Labels)
	if err != nil {
		return err
	}
	run.Model = fitted
	run.Logger.Info("model fitted", map[string]interface{}{
		"run_id":       run.ID,
		"iterations":   fitted.Iterations,
		"log_lik":      fitted.LogLikelihood,
		"pseudo_r2":    fitted.PseudoR2(),
		"coefficients": fitted.Coefficients(),
	})
	return nil
}

// PredictStage 对训练数据逐行预测，生成评分表。
// Model 为空时使用 fit 阶段的拟合结果。
type PredictStage struct {
	Model model.Model
}

func (s *PredictStage) Name() string { return StagePredict }

func (s *PredictStage) Run(ctx context.Context, run *Run) error {
	m := s.Model
	if m == nil {
		if run.Model == nil {
			return core.NewInvalidInputError(core.ModulePipeline, "predict: no fitted model")
		}
		m = run.Model
	}
	probs, err := m.Predict(run.X)
	if err != nil {
		return err
	}
	table, err := core.NewScoredTable(run.Joined, probs)
	if err != nil {
		return err
	}
	run.Table = table
	return nil
}

// PersistStage 原子地写出评分表（覆盖旧文件）
type PersistStage struct{}

func (s *PersistStage) Name() string { return StagePersist }

func (s *PersistStage) Run(ctx context.Context, run *Run) error {
	if run.Output == "" {
		return core.NewInvalidInputError(core.ModulePipeline, "persist: empty output path")
	}
	return store.WriteScoredTable(run.Output, run.Table)
}

// PublishStage 把评分推送到键值存储
type PublishStage struct{}

func (s *PublishStage) Name() string { return StagePublish }

func (s *PublishStage) Run(ctx context.Context, run *Run) error {
	if run.Publisher == nil {
		return nil
	}
	n, err := run.Publisher.Publish(ctx, run.Table)
	if err != nil {
		return err
	}
	run.Published = n
	run.Logger.Info("scores published", map[string]interface{}{
		"run_id":    run.ID,
		"publisher": run.Publisher.Name(),
		"count":     n,
	})
	return nil
}
