// Package query 在评分表之上提供只读查询：按 CustomerId 精确查找、top-K 排名、CEL 过滤。
//
// Service 构造后不可变，可被任意多个 goroutine 并发读取；
// 新的评分表意味着构造新的 Service（见 Reloader）。
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/metrics"
	"github.com/rushteam/churnkit/pkg/dsl"
)

// DefaultTopN 是物化 top 视图的默认行数
const DefaultTopN = 10

// TopColumns 是 top 视图投影的列
func TopColumns() []string {
	return []string{core.ColCustomerID, core.ColGender, core.ColAge, core.ColTenure, core.ColChurnProb}
}

// Option 配置 Service
type Option func(*Service)

// WithTopN 设置物化 top 视图的行数
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithMetrics 记录查询命中率
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// Service 是评分表的只读查询服务
type Service struct {
	table   *core.ScoredTable
	index   map[int64]int // CustomerId → 第一次出现的行号
	ids     []int64       // 去重后的 CustomerId，按表顺序
	ranking []int         // 行号，按 churn_prob 稳定降序
	top     *core.Projection
	topN    int
	metrics *metrics.Recorder
}

// NewService 校验评分表并构建索引、排名与 top 视图。
// 缺少必需列时返回 SchemaMismatchError。
func NewService(table *core.ScoredTable, opts ...Option) (*Service, error) {
	if table == nil {
		return nil, core.NewInvalidInputError(core.ModuleQuery, "nil scored table")
	}
	if missing := table.MissingColumns(core.RequiredScoredColumns()); len(missing) > 0 {
		return nil, core.NewSchemaMismatchError(core.RequiredScoredColumns(), table.Columns)
	}

	s := &Service{
		table: table,
		index: make(map[int64]int, table.Len()),
		topN:  DefaultTopN,
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, row := range table.Rows {
		if _, ok := s.index[row.CustomerID]; ok {
			continue
		}
		s.index[row.CustomerID] = i
		s.ids = append(s.ids, row.CustomerID)
	}

	s.ranking = make([]int, table.Len())
	for i := range s.ranking {
		s.ranking[i] = i
	}
	sort.SliceStable(s.ranking, func(i, j int) bool {
		return table.Rows[s.ranking[i]].ChurnProb > table.Rows[s.ranking[j]].ChurnProb
	})

	top, err := s.TopK(s.topN, TopColumns())
	if err != nil {
		return nil, err
	}
	s.top = top
	return s, nil
}

// Table 返回底层评分表（只读）
func (s *Service) Table() *core.ScoredTable { return s.table }

// Len 返回评分表行数
func (s *Service) Len() int { return s.table.Len() }

// ProbabilityFor 返回 CustomerId 第一次出现的行的 churn_prob。
// 不存在时返回 core.ErrCustomerNotFound。
func (s *Service) ProbabilityFor(id int64) (float64, error) {
	i, ok := s.index[id]
	s.metrics.Lookup(ok)
	if !ok {
		return 0, core.ErrCustomerNotFound
	}
	return s.table.Rows[i].ChurnProb, nil
}

// Row 返回 CustomerId 第一次出现的行
func (s *Service) Row(id int64) (core.ScoredRow, error) {
	i, ok := s.index[id]
	if !ok {
		return core.ScoredRow{}, core.ErrCustomerNotFound
	}
	return s.table.Rows[i], nil
}

// TopK 返回 churn_prob 最高的 k 行在 columns 上的投影。
// 概率相同的行保持原表顺序；表不足 k 行时返回全部行。
func (s *Service) TopK(k int, columns []string) (*core.Projection, error) {
	if k < 0 {
		return nil, core.NewInvalidInputError(core.ModuleQuery, "top-k: k must be non-negative, got %d", k)
	}
	if k > len(s.ranking) {
		k = len(s.ranking)
	}
	rows := make([]core.ScoredRow, k)
	for i, ri := range s.ranking[:k] {
		rows[i] = s.table.Rows[ri]
	}
	p, err := s.Project(rows, columns)
	if err != nil {
		return nil, fmt.Errorf("top-k: %w", err)
	}
	return p, nil
}

// Project 把若干行投影到 columns 上，行顺序不变。未知列返回 InvalidInputError。
func (s *Service) Project(rows []core.ScoredRow, columns []string) (*core.Projection, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = s.table.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, core.NewInvalidInputError(core.ModuleQuery, "unknown column %q", c)
		}
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(idx))
		for j, ci := range idx {
			if ci < len(row.Cells) {
				cells[j] = row.Cells[ci]
			}
		}
		out = append(out, cells)
	}
	return &core.Projection{Columns: append([]string(nil), columns...), Rows: out}, nil
}

// Top10 返回构造时物化的 top 视图（默认 10 行）
func (s *Service) Top10() *core.Projection { return s.top }

// Where 返回满足 CEL 表达式的行，按原表顺序。
// 表达式通过 row.<列名> 访问单元格，例如 row.Gender == "Male" && row.churn_prob > 0.5。
func (s *Service) Where(expr string) ([]core.ScoredRow, error) {
	eval, err := dsl.NewEval(expr)
	if err != nil {
		return nil, core.NewInvalidInputError(core.ModuleQuery, "where %q: %v", expr, err)
	}
	var out []core.ScoredRow
	for i, row := range s.table.Rows {
		ok, err := eval.Evaluate(s.table.Columns, row.Cells)
		if err != nil {
			return nil, core.NewInvalidInputError(core.ModuleQuery, "where %q: row %d: %v", expr, i+1, err)
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// IDs 返回去重后的 CustomerId，按表中第一次出现的顺序
func (s *Service) IDs() []int64 {
	return append([]int64(nil), s.ids...)
}

// ParseID 解析外部输入的 CustomerId
func ParseID(raw string) (int64, error) {
	id, err := core.ParseCustomerID(strings.TrimSpace(raw))
	if err != nil {
		return 0, core.NewInvalidInputError(core.ModuleQuery, "invalid CustomerId %q", raw)
	}
	return id, nil
}

// String 用于日志
func (s *Service) String() string {
	return fmt.Sprintf("query.Service{rows=%d, customers=%d}", s.table.Len(), len(s.ids))
}
