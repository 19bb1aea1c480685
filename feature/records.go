package feature

import (
	"strings"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
)

// ParseRecords 把合并后的原始表转为 CustomerRecord。
//
// 分类列处理：
//   - Gender 按原样转为 core.Gender，是否为已知类别由 Encoder 校验
//   - Exited 保留原始字符串，标签由 Label 显式判断
//
// 缺失必需列、数值列无法解析、整数列带小数部分时返回 EncodingError。
func ParseRecords(table *core.Table) ([]core.CustomerRecord, error) {
	return DefaultMetadata().ParseRecords(table)
}

// ParseRecords 按元数据描述的列解析记录
func (m FeatureMetadata) ParseRecords(table *core.Table) ([]core.CustomerRecord, error) {
	if missing := m.GetMissingColumns(table); len(missing) > 0 {
		return nil, core.NewEncodingError("missing required columns: %s", strings.Join(missing, ", "))
	}
	idx := make(map[string]int, len(table.Columns))
	for i, c := range table.Columns {
		idx[c] = i
	}

	records := make([]core.CustomerRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		p := rowParser{row: row, idx: idx, line: i + 1}
		rec := core.CustomerRecord{
			Gender: core.Gender(strings.TrimSpace(p.str(core.ColGender))),
			Exited: strings.TrimSpace(p.str(core.ColExited)),
		}
		id, err := core.ParseCustomerID(strings.TrimSpace(p.str(core.ColCustomerID)))
		if err != nil {
			return nil, core.NewEncodingError("row %d: %v", p.line, err)
		}
		rec.CustomerID = id
		rec.CreditScore = p.integer(core.ColCreditScore)
		rec.Age = p.integer(core.ColAge)
		rec.Tenure = p.integer(core.ColTenure)
		rec.Balance = p.float(core.ColBalance)
		rec.NumOfProducts = p.integer(core.ColNumOfProducts)
		rec.HasCrCard = p.integer(core.ColHasCrCard)
		rec.IsActiveMember = p.integer(core.ColIsActiveMember)
		rec.EstimatedSalary = p.float(core.ColEstimatedSalary)
		if p.err != nil {
			return nil, p.err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Label 构造 0/1 标签：当且仅当 Exited 数值上等于 1 时为 1。
// 显式比较而不是按真值判断，"Yes"/"No" 之类的编码会得到 0。
func Label(records []core.CustomerRecord) []float64 {
	y := make([]float64, len(records))
	for i, rec := range records {
		if v, ok := conv.ParseFloat(rec.Exited); ok && v == 1 {
			y[i] = 1
		}
	}
	return y
}

// rowParser 记录第一个解析错误，后续调用直接跳过。
type rowParser struct {
	row  []string
	idx  map[string]int
	line int
	err  error
}

func (p *rowParser) str(col string) string {
	i := p.idx[col]
	if i >= len(p.row) {
		return ""
	}
	return p.row[i]
}

func (p *rowParser) float(col string) float64 {
	if p.err != nil {
		return 0
	}
	raw := p.str(col)
	v, ok := conv.ParseFloat(raw)
	if !ok {
		p.err = core.NewEncodingError("row %d: non-numeric %s %q", p.line, col, raw)
	}
	return v
}

func (p *rowParser) integer(col string) int {
	if p.err != nil {
		return 0
	}
	raw := p.str(col)
	v, ok := conv.ParseInt(raw)
	if !ok {
		p.err = core.NewEncodingError("row %d: non-integer %s %q", p.line, col, raw)
	}
	return v
}
