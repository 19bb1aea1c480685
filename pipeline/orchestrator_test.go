package pipeline

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/metrics"
	"github.com/rushteam/churnkit/pkg/logger"
	"github.com/rushteam/churnkit/store"
)

func TestOrchestrator_Build(t *testing.T) {
	f := newFixture(t, 600, 42)
	o := NewOrchestrator(f.Output, logger.NewTestLogger(t))
	o.Metrics = metrics.NewRecorder()

	res, err := o.Build(context.Background(), f.Sources)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	// 行数 = 可匹配客户数，按客户表顺序
	require.Equal(t, len(f.CustomerIDs), res.Table.Len())
	for i, id := range f.CustomerIDs {
		assert.Equal(t, id, res.Table.Rows[i].CustomerID)
	}

	assert.Equal(t, core.ColChurnProb, res.Table.Columns[len(res.Table.Columns)-1])
	for _, row := range res.Table.Rows {
		assert.Greater(t, row.ChurnProb, 0.0)
		assert.Less(t, row.ChurnProb, 1.0)
	}

	s := res.Summary
	assert.Equal(t, 605, s.CustomerRows)
	assert.Equal(t, 603, s.PersonalRows)
	assert.Equal(t, 600, s.JoinedRows)
	assert.Equal(t, f.OnlyCustomer, s.DroppedCustomer)
	assert.Equal(t, f.OnlyPersonal, s.DroppedPersonal)
	assert.Greater(t, s.Positives, 0)
	assert.Less(t, s.Positives, 600)
	assert.Greater(t, s.Iterations, 0)
	assert.LessOrEqual(t, s.Iterations, 35)
	for _, row := range res.Table.Rows {
		assert.LessOrEqual(t, row.ChurnProb, s.Highest.ChurnProb)
		assert.GreaterOrEqual(t, row.ChurnProb, s.Lowest.ChurnProb)
	}
	require.Len(t, s.MeanByGender, 2)
	assert.Equal(t, "Female", s.MeanByGender[0].Gender)
	assert.Equal(t, "Male", s.MeanByGender[1].Gender)
	assert.Equal(t, 600, s.MeanByGender[0].Count+s.MeanByGender[1].Count)

	// 输出文件可以被查询侧重新读取
	persisted, err := store.ReadScoredTable(f.Output)
	require.NoError(t, err)
	require.Equal(t, res.Table.Len(), persisted.Len())
	assert.Equal(t, res.Table.Columns, persisted.Columns)
	for i := range persisted.Rows {
		assert.Equal(t, res.Table.Rows[i].CustomerID, persisted.Rows[i].CustomerID)
		assert.Equal(t, res.Table.Rows[i].ChurnProb, persisted.Rows[i].ChurnProb)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.PipelineRuns.WithLabelValues("success")))
	assert.Equal(t, 600.0, testutil.ToFloat64(o.Metrics.TableRows.WithLabelValues("scored")))
	assert.Equal(t, float64(s.Iterations), testutil.ToFloat64(o.Metrics.ModelIterations))
}

func TestOrchestrator_BuildIsIdempotent(t *testing.T) {
	f := newFixture(t, 300, 3)
	o := NewOrchestrator(f.Output, logger.NewNoOpLogger())

	_, err := o.Build(context.Background(), f.Sources)
	require.NoError(t, err)
	first, err := os.ReadFile(f.Output)
	require.NoError(t, err)

	_, err = o.Build(context.Background(), f.Sources)
	require.NoError(t, err)
	second, err := os.ReadFile(f.Output)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestOrchestrator_MissingSource(t *testing.T) {
	f := newFixture(t, 50, 1)
	require.NoError(t, os.Remove(f.Sources.PersonalPath))
	o := NewOrchestrator(f.Output, logger.NewTestLogger(t))
	o.Metrics = metrics.NewRecorder()

	_, err := o.Build(context.Background(), f.Sources)
	require.Error(t, err)
	assert.True(t, core.IsSourceNotFound(err))
	assert.Contains(t, err.Error(), f.Sources.PersonalPath)
	assert.NoFileExists(t, f.Output)
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.PipelineRuns.WithLabelValues("failure")))
}

func TestOrchestrator_BothSourcesMissingReportsCustomerTable(t *testing.T) {
	f := newFixture(t, 50, 4)
	require.NoError(t, os.Remove(f.Sources.CustomerPath))
	require.NoError(t, os.Remove(f.Sources.PersonalPath))

	_, err := NewOrchestrator(f.Output, logger.NewTestLogger(t)).Build(context.Background(), f.Sources)
	require.Error(t, err)
	assert.True(t, core.IsSourceNotFound(err))
	assert.Contains(t, err.Error(), f.Sources.CustomerPath)
	assert.NotContains(t, err.Error(), f.Sources.PersonalPath)
}

func TestOrchestrator_UnknownGender(t *testing.T) {
	f := newFixture(t, 200, 5)
	setPersonalGender(t, f, f.CustomerIDs[10], "Other")

	_, err := NewOrchestrator(f.Output, logger.NewTestLogger(t)).Build(context.Background(), f.Sources)
	require.Error(t, err)
	assert.True(t, core.IsEncodingError(err))
	assert.Contains(t, err.Error(), "Other")
	assert.NoFileExists(t, f.Output)
}

func TestOrchestrator_FailureKeepsPreviousOutput(t *testing.T) {
	f := newFixture(t, 200, 8)
	o := NewOrchestrator(f.Output, logger.NewNoOpLogger())
	_, err := o.Build(context.Background(), f.Sources)
	require.NoError(t, err)
	before, err := os.ReadFile(f.Output)
	require.NoError(t, err)

	setPersonalGender(t, f, f.CustomerIDs[0], "Unknown")
	_, err = o.Build(context.Background(), f.Sources)
	require.Error(t, err)

	after, err := os.ReadFile(f.Output)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOrchestrator_Publish(t *testing.T) {
	f := newFixture(t, 200, 11)
	kv := store.NewMemoryStore()
	o := NewOrchestrator(f.Output, logger.NewTestLogger(t))
	o.Publisher = store.NewScorePublisher(kv, "")

	res, err := o.Build(context.Background(), f.Sources)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Summary.Published)

	top, err := kv.ZRevRange(context.Background(), "churn:rank", 0, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, strconv.FormatInt(res.Summary.Highest.CustomerID, 10), top[0])

	raw, err := kv.Get(context.Background(), "churn:prob:"+strconv.FormatInt(f.CustomerIDs[0], 10))
	require.NoError(t, err)
	assert.Equal(t, core.FormatProb(res.Table.Rows[0].ChurnProb), string(raw))
}

func TestOrchestrator_Cancelled(t *testing.T) {
	f := newFixture(t, 50, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOrchestrator(f.Output, nil).Build(ctx, f.Sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoFileExists(t, f.Output)
}

type failingStage struct{ err error }

func (s *failingStage) Name() string                           { return "boom" }
func (s *failingStage) Run(ctx context.Context, run *Run) error { return s.err }

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	p := &Pipeline{Stages: []Stage{
		stageFunc("a", func(*Run) { ran = append(ran, "a") }),
		&failingStage{err: boom},
		stageFunc("c", func(*Run) { ran = append(ran, "c") }),
	}}

	err := p.Execute(context.Background(), &Run{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stage boom")
	assert.Equal(t, []string{"a"}, ran)
}

type funcStage struct {
	name string
	fn   func(*Run)
}

func stageFunc(name string, fn func(*Run)) Stage { return &funcStage{name: name, fn: fn} }

func (s *funcStage) Name() string { return s.name }

func (s *funcStage) Run(ctx context.Context, run *Run) error {
	s.fn(run)
	return nil
}

func TestDefaultStages_Order(t *testing.T) {
	var names []string
	for _, s := range DefaultStages() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		StageLoad, StageJoin, StageCoerce, StageLabel, StageEncode,
		StageFit, StagePredict, StagePersist, StagePublish,
	}, names)
}

type constModel struct{ p float64 }

func (m constModel) Name() string { return "const" }

func (m constModel) Predict(X *feature.DesignMatrix) ([]float64, error) {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = m.p
	}
	return out, nil
}

func TestOrchestrator_CustomPredictModel(t *testing.T) {
	f := newFixture(t, 100, 21)
	stages := DefaultStages()
	for i, s := range stages {
		if s.Name() == StagePredict {
			stages[i] = &PredictStage{Model: constModel{p: 0.25}}
		}
	}
	o := NewOrchestrator(f.Output, logger.NewTestLogger(t))
	o.Stages = stages

	res, err := o.Build(context.Background(), f.Sources)
	require.NoError(t, err)
	for _, row := range res.Table.Rows {
		assert.Equal(t, 0.25, row.ChurnProb)
	}
}
