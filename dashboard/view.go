// Package dashboard 是查询服务与展示层之间的边界：
// 把查询结果格式化为展示文本，错误以文本返回，不会让展示层崩溃。
package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
	"github.com/rushteam/churnkit/query"
)

// View 基于一个 query.Service 快照渲染展示内容
type View struct {
	Service *query.Service
}

// TableColumns 是 top 表展示的列
func TableColumns() []string {
	return []string{core.ColGender, core.ColAge, core.ColTenure}
}

// ProbabilityText 返回所选客户的流失概率文本。
// 无法解析的输入与不存在的客户都返回 "Error: <原因>"。
func (v *View) ProbabilityText(selected string) string {
	id, err := query.ParseID(selected)
	if err != nil {
		return ErrorText(err)
	}
	p, err := v.Service.ProbabilityFor(id)
	if err != nil {
		return ErrorText(err)
	}
	return ProbabilityText(id, p)
}

// ProbabilityText 格式化单个客户的流失概率
func ProbabilityText(id int64, p float64) string {
	return fmt.Sprintf("Churn probability for CustomerId %d = %.4f", id, p)
}

// ErrorText 把查询错误转为展示文本
func ErrorText(err error) string {
	return "Error: " + err.Error()
}

// IsDisplayable 判断错误是否应作为文本展示而不是中止：客户不存在或输入无效
func IsDisplayable(err error) bool {
	return core.IsNotFound(err) || core.IsInvalidInput(err)
}

// Top10Table 返回 top 视图在 Gender / Age / Tenure 上的投影
func (v *View) Top10Table() *core.Projection {
	top := v.Service.Top10()
	idx := make([]int, 0, len(TableColumns()))
	for _, c := range TableColumns() {
		for i, tc := range top.Columns {
			if tc == c {
				idx = append(idx, i)
			}
		}
	}
	rows := make([][]string, len(top.Rows))
	for i, r := range top.Rows {
		out := make([]string, len(idx))
		for j, ci := range idx {
			out[j] = r[ci]
		}
		rows[i] = out
	}
	return &core.Projection{Columns: TableColumns(), Rows: rows}
}

// Choices 返回可选的 CustomerId（去重，按表顺序）
func (v *View) Choices() []string {
	return conv.ConvertSlice(v.Service.IDs(), func(id int64) (string, bool) {
		return strconv.FormatInt(id, 10), true
	})
}

// DefaultChoice 返回默认选中的 CustomerId；表为空时返回空串
func (v *View) DefaultChoice() string {
	ids := v.Service.IDs()
	if len(ids) == 0 {
		return ""
	}
	return strconv.FormatInt(ids[0], 10)
}

// WriteTable 以对齐的纯文本输出投影
func WriteTable(w io.Writer, p *core.Projection) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(p.Columns, "\t"))
	for _, row := range p.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
