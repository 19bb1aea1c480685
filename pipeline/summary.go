package pipeline

import (
	"sort"

	"github.com/rushteam/churnkit/core"
)

// CustomerProb 是一个客户及其流失概率
type CustomerProb struct {
	CustomerID int64
	ChurnProb  float64
}

// GenderMean 是某个性别的平均流失概率
type GenderMean struct {
	Gender    string
	Count     int
	ChurnProb float64
}

// Summary 是一次运行的统计摘要
type Summary struct {
	CustomerRows    int
	PersonalRows    int
	JoinedRows      int
	DroppedCustomer int
	DroppedPersonal int
	Positives       int

	Highest      CustomerProb
	Lowest       CustomerProb
	MeanByGender []GenderMean // 按性别名排序

	Iterations int
	PseudoR2   float64
	Published  int
}

// Summarize 从运行状态计算摘要。
// 最高 / 最低概率取首次出现的行；评分表为空时两者为零值。
func Summarize(run *Run) Summary {
	s := Summary{
		CustomerRows:    run.Join.LeftRows,
		PersonalRows:    run.Join.RightRows,
		JoinedRows:      run.Join.JoinedRows,
		DroppedCustomer: run.Join.UnmatchedLeft,
		DroppedPersonal: run.Join.UnmatchedRight,
		Published:       run.Published,
	}
	for _, y := range run.Labels {
		if y == 1 {
			s.Positives++
		}
	}
	if run.Model != nil {
		s.Iterations = run.Model.Iterations
		s.PseudoR2 = run.Model.PseudoR2()
	}
	if run.Table == nil || run.Table.Len() == 0 {
		return s
	}

	rows := run.Table.Rows
	hi, lo := rows[0], rows[0]
	for _, r := range rows[1:] {
		if r.ChurnProb > hi.ChurnProb {
			hi = r
		}
		if r.ChurnProb < lo.ChurnProb {
			lo = r
		}
	}
	s.Highest = CustomerProb{CustomerID: hi.CustomerID, ChurnProb: hi.ChurnProb}
	s.Lowest = CustomerProb{CustomerID: lo.CustomerID, ChurnProb: lo.ChurnProb}

	genderIdx := run.Table.ColumnIndex(core.ColGender)
	if genderIdx < 0 {
		return s
	}
	sums := make(map[string]*GenderMean)
	for _, r := range rows {
		g := ""
		if genderIdx < len(r.Cells) {
			g = r.Cells[genderIdx]
		}
		m, ok := sums[g]
		if !ok {
			m = &GenderMean{Gender: g}
			sums[g] = m
		}
		m.Count++
		m.ChurnProb += r.ChurnProb
	}
	for _, m := range sums {
		m.ChurnProb /= float64(m.Count)
		s.MeanByGender = append(s.MeanByGender, *m)
	}
	sort.Slice(s.MeanByGender, func(i, j int) bool {
		return s.MeanByGender[i].Gender < s.MeanByGender[j].Gender
	})
	return s
}

// Fields 把摘要展开为日志字段
func (s Summary) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"customer_rows":    s.CustomerRows,
		"personal_rows":    s.PersonalRows,
		"joined_rows":      s.JoinedRows,
		"dropped_customer": s.DroppedCustomer,
		"dropped_personal": s.DroppedPersonal,
		"positives":        s.Positives,
		"highest_customer": s.Highest.CustomerID,
		"highest_prob":     s.Highest.ChurnProb,
		"lowest_customer":  s.Lowest.CustomerID,
		"lowest_prob":      s.Lowest.ChurnProb,
		"iterations":       s.Iterations,
		"pseudo_r2":        s.PseudoR2,
		"published":        s.Published,
	}
	for _, m := range s.MeanByGender {
		fields["mean_prob_"+m.Gender] = m.ChurnProb
	}
	return fields
}
