package feature

import (
	"gonum.org/v1/gonum/mat"
)

// DesignMatrix 是回归拟合/预测使用的数值矩阵，附带有序列名。
type DesignMatrix struct {
	Columns []string
	Data    *mat.Dense
}

// Dims 返回 (行数, 列数)
func (m *DesignMatrix) Dims() (int, int) {
	if m == nil || m.Data == nil {
		return 0, len(m.columns())
	}
	return m.Data.Dims()
}

// Row 返回第 i 行的拷贝
func (m *DesignMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Data)
}

// At 按列名取值
func (m *DesignMatrix) At(i int, column string) (float64, bool) {
	for j, c := range m.Columns {
		if c == column {
			return m.Data.At(i, j), true
		}
	}
	return 0, false
}

// SameSchema 判断列集合与顺序是否完全一致
func (m *DesignMatrix) SameSchema(columns []string) bool {
	cols := m.columns()
	if len(cols) != len(columns) {
		return false
	}
	for i := range cols {
		if cols[i] != columns[i] {
			return false
		}
	}
	return true
}

func (m *DesignMatrix) columns() []string {
	if m == nil {
		return nil
	}
	return m.Columns
}
