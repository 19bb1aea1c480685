package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
)

const (
	// DefaultMaxIter 与 statsmodels Logit.fit(method="newton") 的默认值一致
	DefaultMaxIter = 35
	// DefaultTol 参数变化量的收敛阈值
	DefaultTol = 1e-8

	// 步长减半的最小步长，低于此值视为无法继续提升似然
	minStep = 1.0 / 1024
	// 所有样本残差都小于该值时视为完全可分
	separationEps = 1e-10
)

// Trainer 以最大似然拟合二分类逻辑回归 (Logistic Regression)。
//
// 优化方法：Newton-Raphson / IRLS
//  1. 线性预测: η = Xβ, μ = sigmoid(η)
//  2. 梯度: g = Xᵀ(y - μ)
//  3. Hessian: H = XᵀWX, W = diag(μ(1-μ))
//  4. 更新: β ← β + t·H⁻¹g，若对数似然下降则 t 减半
//
// 各列在内部按均方根缩放后再迭代，拟合结束后系数换算回原始尺度；
// 余额、收入等大尺度列不会让 Hessian 病态。
type Trainer struct {
	MaxIter int
	Tol     float64
}

// NewTrainer 创建使用默认收敛参数的 Trainer
func NewTrainer() *Trainer {
	return &Trainer{MaxIter: DefaultMaxIter, Tol: DefaultTol}
}

// Fit 拟合模型。y 必须为 0/1 且长度等于 X 的行数。
//
// 以下情况返回 FitError：
//   - 存在全零列（无法识别对应系数）
//   - Hessian 奇异
//   - 完全可分或准完全可分（系数发散、达到 MaxIter 仍未收敛）
func (t *Trainer) Fit(X *feature.DesignMatrix, y []float64) (*FittedModel, error) {
	if X == nil || X.Data == nil {
		return nil, core.NewFitError("nil design matrix", nil)
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, core.NewFitError("empty design matrix", nil)
	}
	if len(y) != n {
		return nil, core.NewFitError(fmt.Sprintf("label length %d does not match %d rows", len(y), n), nil)
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, core.NewFitError(fmt.Sprintf("label at row %d is %v, want 0 or 1", i, v), nil)
		}
	}
	maxIter, tol := t.MaxIter, t.Tol
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	if tol <= 0 {
		tol = DefaultTol
	}

	scale, err := columnScale(X)
	if err != nil {
		return nil, err
	}
	Z := mat.NewDense(n, p, nil)
	Z.Apply(func(_, j int, v float64) float64 { return v / scale[j] }, X.Data)
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	gamma := mat.NewVecDense(p, nil)
	ll := logLikelihood(Z, yv, gamma)

	converged := false
	iter := 0
	for iter < maxIter {
		iter++
		grad, hess := gradientHessian(Z, yv, gamma)

		var chol mat.Cholesky
		if ok := chol.Factorize(hess); !ok {
			return nil, core.NewFitError(fmt.Sprintf("singular Hessian at iteration %d (possible separation)", iter), nil)
		}
		var delta mat.VecDense
		if err := chol.SolveVecTo(&delta, grad); err != nil {
			return nil, core.NewFitError(fmt.Sprintf("solve Newton step at iteration %d", iter), err)
		}

		// 步长减半，保证对数似然不下降
		step := 1.0
		var next *mat.VecDense
		var nextLL float64
		for {
			next = mat.NewVecDense(p, nil)
			next.AddScaledVec(gamma, step, &delta)
			nextLL = logLikelihood(Z, yv, next)
			if nextLL >= ll-1e-12*math.Abs(ll) || step <= minStep {
				break
			}
			step /= 2
		}

		maxChange := 0.0
		for j := 0; j < p; j++ {
			maxChange = math.Max(maxChange, math.Abs(next.AtVec(j)-gamma.AtVec(j)))
		}
		gamma, ll = next, nextLL

		if !finite(gamma) || math.IsNaN(ll) {
			return nil, core.NewFitError(fmt.Sprintf("non-finite coefficients at iteration %d", iter), nil)
		}
		if perfectlySeparated(Z, yv, gamma) {
			return nil, core.NewFitError("perfect separation detected, coefficients are not identified", nil)
		}
		if maxChange < tol {
			converged = true
			break
		}
	}
	if !converged {
		return nil, core.NewFitError(
			fmt.Sprintf("did not converge in %d iterations (quasi-separation or too few iterations)", maxIter),
			errNotConverged,
		)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = gamma.AtVec(j) / scale[j]
	}
	return &FittedModel{
		Columns:           append([]string(nil), X.Columns...),
		Coef:              coef,
		Iterations:        iter,
		LogLikelihood:     ll,
		NullLogLikelihood: nullLogLikelihood(y),
		NumObs:            n,
	}, nil
}

var errNotConverged = errors.New("maximum iterations reached")

// FittedModel 是拟合结果：不可变的系数向量 + 拟合时的有序列名。
// Predict 是该值与设计矩阵的纯函数，没有隐藏的可变状态。
type FittedModel struct {
	Columns           []string
	Coef              []float64
	Iterations        int
	LogLikelihood     float64
	NullLogLikelihood float64
	NumObs            int
}

var _ Model = (*FittedModel)(nil)

func (m *FittedModel) Name() string { return "logit" }

// Predict 计算 P = 1 / (1 + exp(-Xβ))。
//
// 输出严格位于 (0, 1)：极端的线性预测值会被夹到最接近 0/1 的可表示浮点数。
// X 的列集合或顺序与拟合时不同时返回 SchemaMismatchError。
func (m *FittedModel) Predict(X *feature.DesignMatrix) ([]float64, error) {
	if X == nil || !X.SameSchema(m.Columns) {
		var got []string
		if X != nil {
			got = X.Columns
		}
		return nil, core.NewSchemaMismatchError(m.Columns, got)
	}
	n, _ := X.Dims()
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(X.Data, mat.NewVecDense(len(m.Coef), append([]float64(nil), m.Coef...)))

	out := make([]float64, n)
	for i := range out {
		out[i] = clampProb(sigmoid(eta.AtVec(i)))
	}
	return out, nil
}

// Coefficients 返回列名 → 系数
func (m *FittedModel) Coefficients() map[string]float64 {
	out := make(map[string]float64, len(m.Coef))
	for i, c := range m.Columns {
		out[c] = m.Coef[i]
	}
	return out
}

// PseudoR2 返回 McFadden 伪 R²：1 - llf / llnull
func (m *FittedModel) PseudoR2() float64 {
	if m.NullLogLikelihood == 0 {
		return 0
	}
	return 1 - m.LogLikelihood/m.NullLogLikelihood
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

var (
	probLow  = math.SmallestNonzeroFloat64
	probHigh = math.Nextafter(1, 0)
)

func clampProb(p float64) float64 {
	return math.Min(math.Max(p, probLow), probHigh)
}

// log(1 + exp(z))，避免溢出
func log1pExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func logLikelihood(Z *mat.Dense, y, beta *mat.VecDense) float64 {
	n, _ := Z.Dims()
	var eta mat.VecDense
	eta.MulVec(Z, beta)
	ll := 0.0
	for i := 0; i < n; i++ {
		z := eta.AtVec(i)
		ll += y.AtVec(i)*z - log1pExp(z)
	}
	return ll
}

func gradientHessian(Z *mat.Dense, y, beta *mat.VecDense) (*mat.VecDense, *mat.SymDense) {
	n, p := Z.Dims()
	var eta mat.VecDense
	eta.MulVec(Z, beta)

	resid := mat.NewVecDense(n, nil)
	hess := mat.NewSymDense(p, nil)
	for i := 0; i < n; i++ {
		mu := sigmoid(eta.AtVec(i))
		resid.SetVec(i, y.AtVec(i)-mu)
		hess.SymRankOne(hess, mu*(1-mu), Z.RowView(i))
	}
	grad := mat.NewVecDense(p, nil)
	grad.MulVec(Z.T(), resid)
	return grad, hess
}

func perfectlySeparated(Z *mat.Dense, y, beta *mat.VecDense) bool {
	n, _ := Z.Dims()
	var eta mat.VecDense
	eta.MulVec(Z, beta)
	for i := 0; i < n; i++ {
		if math.Abs(y.AtVec(i)-sigmoid(eta.AtVec(i))) >= separationEps {
			return false
		}
	}
	return true
}

func nullLogLikelihood(y []float64) float64 {
	n := float64(len(y))
	pos := 0.0
	for _, v := range y {
		pos += v
	}
	if pos == 0 || pos == n {
		return 0
	}
	p := pos / n
	return pos*math.Log(p) + (n-pos)*math.Log(1-p)
}

// columnScale 计算每列的均方根；全零列无法识别系数，直接报错。
func columnScale(X *feature.DesignMatrix) ([]float64, error) {
	n, p := X.Dims()
	scale := make([]float64, p)
	for j := 0; j < p; j++ {
		ss := 0.0
		for i := 0; i < n; i++ {
			v := X.Data.At(i, j)
			ss += v * v
		}
		rms := math.Sqrt(ss / float64(n))
		if rms == 0 || math.IsNaN(rms) || math.IsInf(rms, 0) {
			return nil, core.NewFitError(fmt.Sprintf("column %s is all zeros or non-finite", X.Columns[j]), nil)
		}
		scale[j] = rms
	}
	return scale, nil
}

func finite(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
