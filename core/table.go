package core

import (
	"fmt"
	"strconv"
)

// Table 是一张原始分隔符表格：表头 + 按原始顺序排列的字符串单元格。
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex 返回列下标，不存在返回 -1。
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column 返回整列的值（按行顺序）。
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}

// Len 返回行数。
func (t *Table) Len() int { return len(t.Rows) }

// ScoredRow 是评分表的一行：解析好的主键、概率，以及与 Columns 对齐的原始单元格。
type ScoredRow struct {
	CustomerID int64
	ChurnProb  float64
	Cells      []string
}

// ScoredTable 是合并表 ∪ {churn_prob}。
// 每次 Orchestrator 运行生成一次，之后只读；重新评分意味着重新生成整张表。
type ScoredTable struct {
	Columns []string
	Rows    []ScoredRow
}

// NewScoredTable 在 base 之后追加 churn_prob 列（若已存在则覆盖该列的值）。
func NewScoredTable(base *Table, probs []float64) (*ScoredTable, error) {
	if base == nil {
		return nil, NewInvalidInputError(ModulePipeline, "scored table: nil base table")
	}
	if len(probs) != len(base.Rows) {
		return nil, NewInvalidInputError(ModulePipeline,
			"scored table: %d probabilities for %d rows", len(probs), len(base.Rows))
	}
	idIdx := base.ColumnIndex(ColCustomerID)
	if idIdx < 0 {
		return nil, NewInvalidInputError(ModulePipeline, "scored table: missing column %s", ColCustomerID)
	}

	columns := append([]string(nil), base.Columns...)
	probIdx := base.ColumnIndex(ColChurnProb)
	if probIdx < 0 {
		columns = append(columns, ColChurnProb)
		probIdx = len(columns) - 1
	}

	rows := make([]ScoredRow, len(base.Rows))
	for i, src := range base.Rows {
		id, err := ParseCustomerID(cell(src, idIdx))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		cells := make([]string, len(columns))
		copy(cells, src)
		cells[probIdx] = FormatProb(probs[i])
		rows[i] = ScoredRow{CustomerID: id, ChurnProb: probs[i], Cells: cells}
	}
	return &ScoredTable{Columns: columns, Rows: rows}, nil
}

// ColumnIndex 返回列下标，不存在返回 -1。
func (t *ScoredTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// MissingColumns 返回 names 中表里不存在的列。
func (t *ScoredTable) MissingColumns(names []string) []string {
	var missing []string
	for _, n := range names {
		if t.ColumnIndex(n) < 0 {
			missing = append(missing, n)
		}
	}
	return missing
}

// Value 取某行某列的单元格。
func (t *ScoredTable) Value(row int, column string) (string, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	return cell(t.Rows[row].Cells, idx), true
}

// Len 返回行数。
func (t *ScoredTable) Len() int { return len(t.Rows) }

// Projection 是按列子集投影后的有序结果（用于 top-K 视图）。
type Projection struct {
	Columns []string
	Rows    [][]string
}

// Len 返回行数。
func (p *Projection) Len() int { return len(p.Rows) }

// Value 取投影中某行某列的值。
func (p *Projection) Value(row int, column string) (string, bool) {
	if row < 0 || row >= len(p.Rows) {
		return "", false
	}
	for i, c := range p.Columns {
		if c == column {
			return cell(p.Rows[row], i), true
		}
	}
	return "", false
}

// ParseCustomerID 解析 CustomerId 单元格；兼容 "15634602" 与 "15634602.0" 两种写法。
func ParseCustomerID(s string) (int64, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, NewInvalidInputError(ModulePipeline, "invalid %s %q", ColCustomerID, s)
	}
	return int64(f), nil
}

// FormatProb 以最短可往返的十进制形式输出概率。
func FormatProb(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
