package pipeline

import (
	"strconv"
	"strings"

	"github.com/rushteam/churnkit/core"
)

// 合并时左右两表同名非键列的后缀
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// JoinStats 记录一次内连接的行数统计
type JoinStats struct {
	LeftRows       int
	RightRows      int
	JoinedRows     int
	UnmatchedLeft  int
	UnmatchedRight int
}

// InnerJoin 按 key 列对两张表做内连接。
//
//   - 输出行按左表顺序排列；左表一行匹配右表多行时，按右表顺序各输出一行
//   - 输出列：左表全部列，然后是右表除 key 外的列
//   - 两表同名的非键列分别加 _x / _y 后缀
//   - 任一侧没有匹配的行被丢弃，数量记录在 JoinStats 中
//
// 整数形式的 key（含 "15634602.0" 写法）按数值比较，其余按去除首尾空白后的字符串比较。
func InnerJoin(left, right *core.Table, key string) (*core.Table, JoinStats, error) {
	if left == nil || right == nil {
		return nil, JoinStats{}, core.NewInvalidInputError(core.ModulePipeline, "join: nil table")
	}
	stats := JoinStats{LeftRows: left.Len(), RightRows: right.Len()}

	lk := left.ColumnIndex(key)
	if lk < 0 {
		return nil, stats, core.NewEncodingError("join: left table missing key column %s", key)
	}
	rk := right.ColumnIndex(key)
	if rk < 0 {
		return nil, stats, core.NewEncodingError("join: right table missing key column %s", key)
	}

	columns := joinColumns(left.Columns, right.Columns, key)

	rightByKey := make(map[string][]int, right.Len())
	for i, row := range right.Rows {
		k := joinKey(row, rk)
		rightByKey[k] = append(rightByKey[k], i)
	}

	matchedRight := make(map[int]struct{}, right.Len())
	rows := make([][]string, 0, left.Len())
	for _, lrow := range left.Rows {
		matches := rightByKey[joinKey(lrow, lk)]
		if len(matches) == 0 {
			stats.UnmatchedLeft++
			continue
		}
		for _, ri := range matches {
			matchedRight[ri] = struct{}{}
			out := make([]string, 0, len(columns))
			out = append(out, pad(lrow, len(left.Columns))...)
			rrow := pad(right.Rows[ri], len(right.Columns))
			for j, v := range rrow {
				if j != rk {
					out = append(out, v)
				}
			}
			rows = append(rows, out)
		}
	}
	stats.JoinedRows = len(rows)
	stats.UnmatchedRight = right.Len() - len(matchedRight)
	return &core.Table{Columns: columns, Rows: rows}, stats, nil
}

func joinColumns(left, right []string, key string) []string {
	inLeft := make(map[string]struct{}, len(left))
	for _, c := range left {
		inLeft[c] = struct{}{}
	}
	inRight := make(map[string]struct{}, len(right))
	for _, c := range right {
		inRight[c] = struct{}{}
	}

	columns := make([]string, 0, len(left)+len(right)-1)
	for _, c := range left {
		if _, dup := inRight[c]; dup && c != key {
			c += LeftSuffix
		}
		columns = append(columns, c)
	}
	for _, c := range right {
		if c == key {
			continue
		}
		if _, dup := inLeft[c]; dup {
			c += RightSuffix
		}
		columns = append(columns, c)
	}
	return columns
}

func joinKey(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	k := strings.TrimSpace(row[idx])
	if id, err := core.ParseCustomerID(k); err == nil {
		return strconv.FormatInt(id, 10)
	}
	return k
}

// pad 把短行补齐到 n 列
func pad(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
