// Package dsl 提供基于 CEL (Common Expression Language) 的行过滤表达式。
package dsl

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/churnkit/pkg/conv"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// getCELEnv 获取或创建 CEL 环境。表达式中只有一个变量 row：列名 → 单元格值。
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return celEnv, celEnvErr
}

// Eval 是编译好的行过滤表达式。
//
// 单元格可解析为数字时以 double 参与运算，否则为字符串：
//   - 数值：row.churn_prob > 0.5 / row.Age >= 60
//   - 字符串：row.Gender == "Male"
//   - 组合：row.Gender == "Female" && row.Tenure < 2
//   - 存在性："Balance" in row
//
// 编译一次，可被多个 goroutine 并发 Evaluate。
type Eval struct {
	expr string
	prg  cel.Program
}

// NewEval 编译表达式，结果类型必须为 bool。
func NewEval(expr string) (*Eval, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("compile error: empty expression")
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return boolean, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Eval{expr: expr, prg: prg}, nil
}

// String 返回原始表达式
func (e *Eval) String() string { return e.expr }

// Evaluate 对一行求值。columns 与 cells 按下标对齐。
func (e *Eval) Evaluate(columns, cells []string) (bool, error) {
	out, _, err := e.prg.Eval(map[string]any{"row": BuildRow(columns, cells)})
	if err != nil {
		// 访问不存在的列会在这里报错；调用方应先用 "col" in row 判断
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// BuildRow 构建 CEL 输入中的 row
func BuildRow(columns, cells []string) map[string]any {
	row := make(map[string]any, len(columns))
	for i, c := range columns {
		v := ""
		if i < len(cells) {
			v = cells[i]
		}
		row[c] = conv.CellValue(v)
	}
	return row
}
