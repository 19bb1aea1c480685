package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/churnkit/core"
)

// OneHotEncoder One-Hot 编码（独热编码），丢弃参考水平。
//
// 与常见实现的区别：
//   - 类别集合固定（Levels），未知类别直接返回 EncodingError，不做静默补零
//   - 第一个类别作为参考水平被丢弃，避免与截距完全共线（dummy trap）
//   - 列名为 "<key>_<level>"，例如 Gender_Male
type OneHotEncoder struct {
	Key    string
	Levels []string
}

// NewOneHotEncoder 创建 One-Hot 编码器
func NewOneHotEncoder(key string, levels []string) *OneHotEncoder {
	return &OneHotEncoder{Key: key, Levels: levels}
}

// NewGenderEncoder 创建 Gender 编码器（Female 为参考水平，输出 Gender_Male）
func NewGenderEncoder() *OneHotEncoder {
	levels := make([]string, 0, len(core.GenderLevels()))
	for _, g := range core.GenderLevels() {
		levels = append(levels, g.String())
	}
	return NewOneHotEncoder(core.ColGender, levels)
}

// Columns 返回编码后的列名（不含参考水平）
func (e *OneHotEncoder) Columns() []string {
	if len(e.Levels) < 2 {
		return nil
	}
	cols := make([]string, 0, len(e.Levels)-1)
	for _, lvl := range e.Levels[1:] {
		cols = append(cols, fmt.Sprintf("%s_%s", e.Key, lvl))
	}
	return cols
}

// EncodeValue 编码单个值，返回与 Columns 对齐的指示变量
func (e *OneHotEncoder) EncodeValue(value string) ([]float64, error) {
	pos := -1
	for i, lvl := range e.Levels {
		if lvl == value {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, core.NewEncodingError("unknown %s level %q (expected one of %v)", e.Key, value, e.Levels)
	}
	encoded := make([]float64, len(e.Levels)-1)
	if pos > 0 {
		encoded[pos-1] = 1.0
	}
	return encoded, nil
}

// Encoder 把合并后的客户记录转为设计矩阵。
//
// 列顺序：const, 数值特征（FeatureMetadata.NumericColumns 顺序）, Gender 指示变量。
// 对同一输入 schema，多次调用输出的列集合与顺序完全一致。
type Encoder struct {
	Metadata FeatureMetadata
	Gender   *OneHotEncoder
}

// NewEncoder 创建默认的流失特征编码器
func NewEncoder() *Encoder {
	return &Encoder{
		Metadata: DefaultMetadata(),
		Gender:   NewGenderEncoder(),
	}
}

// Schema 返回设计矩阵的列名（有序）
func (e *Encoder) Schema() []string {
	cols := []string{InterceptColumn}
	cols = append(cols, e.Metadata.NumericColumns...)
	cols = append(cols, e.Gender.Columns()...)
	return cols
}

// Encode 编码一批记录
func (e *Encoder) Encode(records []core.CustomerRecord) (*DesignMatrix, error) {
	if len(records) == 0 {
		return nil, core.NewEncodingError("no records to encode")
	}
	columns := e.Schema()
	data := mat.NewDense(len(records), len(columns), nil)

	for i, rec := range records {
		row, err := e.EncodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("customer %d: %w", rec.CustomerID, err)
		}
		data.SetRow(i, row)
	}
	return &DesignMatrix{Columns: columns, Data: data}, nil
}

// EncodeRecord 编码单条记录，返回与 Schema 对齐的一行
func (e *Encoder) EncodeRecord(rec core.CustomerRecord) ([]float64, error) {
	if !rec.Gender.Valid() {
		return nil, core.NewEncodingError("unknown %s level %q", core.ColGender, rec.Gender)
	}
	row := make([]float64, 0, 1+len(e.Metadata.NumericColumns)+len(e.Gender.Levels)-1)
	row = append(row, 1.0)
	for _, col := range e.Metadata.NumericColumns {
		v, ok := rec.Feature(col)
		if !ok {
			return nil, core.NewEncodingError("unknown feature column %s", col)
		}
		row = append(row, v)
	}
	dummies, err := e.Gender.EncodeValue(rec.Gender.String())
	if err != nil {
		return nil, err
	}
	return append(row, dummies...), nil
}
