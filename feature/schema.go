package feature

import "github.com/rushteam/churnkit/core"

// InterceptColumn 是截距列名，固定位于设计矩阵第一列。
const InterceptColumn = "const"

// FeatureMetadata 描述设计矩阵的列结构。
type FeatureMetadata struct {
	// NumericColumns 数值特征列（按顺序）
	NumericColumns []string
	// CategoricalColumn 需要 one-hot 的分类列
	CategoricalColumn string
	// LabelColumn 标签列名
	LabelColumn string
}

// DefaultMetadata 返回流失模型使用的列结构：8 个数值列 + Gender。
// 顺序即设计矩阵中的顺序，不能随意调整，否则与已拟合模型的系数不再对应。
func DefaultMetadata() FeatureMetadata {
	return FeatureMetadata{
		NumericColumns: []string{
			core.ColCreditScore,
			core.ColAge,
			core.ColTenure,
			core.ColBalance,
			core.ColNumOfProducts,
			core.ColHasCrCard,
			core.ColIsActiveMember,
			core.ColEstimatedSalary,
		},
		CategoricalColumn: core.ColGender,
		LabelColumn:       core.ColExited,
	}
}

// RequiredColumns 返回合并表必须包含的列（主键 + 9 个特征 + 标签）。
func (m FeatureMetadata) RequiredColumns() []string {
	cols := []string{core.ColCustomerID}
	cols = append(cols, m.NumericColumns...)
	cols = append(cols, m.CategoricalColumn, m.LabelColumn)
	return cols
}

// GetMissingColumns 返回 table 中缺失的必需列
func (m FeatureMetadata) GetMissingColumns(table *core.Table) []string {
	var missing []string
	for _, col := range m.RequiredColumns() {
		if table.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	return missing
}
