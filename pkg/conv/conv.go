// Package conv 提供单元格字符串到数值/动态值的转换工具，用于简化各模块中的重复逻辑。
package conv

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloat 将单元格解析为有限的 float64；空串、NaN、Inf 视为失败。
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt 将单元格解析为 int。接受 "42" 与 "42.0"，拒绝带小数部分的值。
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, ok := ParseFloat(s)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// CellValue 把单元格转为动态值：可解析为数字时返回 float64，否则返回原字符串。
// 供 CEL 表达式使用（row.Age > 40 / row.Gender == "Male"）。
func CellValue(s string) any {
	if f, ok := ParseFloat(s); ok {
		return f
	}
	return s
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}
