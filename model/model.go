package model

import "github.com/rushteam/churnkit/feature"

// Model 是评分阶段的最小抽象：输入设计矩阵，输出每行的概率。
// 具体实现是拟合得到的 FittedModel；pipeline 的 predict 阶段只依赖此接口。
type Model interface {
	Name() string
	Predict(X *feature.DesignMatrix) ([]float64, error)
}
