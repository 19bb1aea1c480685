package core

// 列名常量：原始表与评分表共用同一套列名。
const (
	ColCustomerID      = "CustomerId"
	ColGender          = "Gender"
	ColAge             = "Age"
	ColTenure          = "Tenure"
	ColBalance         = "Balance"
	ColNumOfProducts   = "NumOfProducts"
	ColHasCrCard       = "HasCrCard"
	ColIsActiveMember  = "IsActiveMember"
	ColEstimatedSalary = "EstimatedSalary"
	ColCreditScore     = "CreditScore"
	ColExited          = "Exited"
	ColChurnProb       = "churn_prob"
)

// RequiredScoredColumns 是评分表被查询服务 / dashboard 读取时必须存在的列。
func RequiredScoredColumns() []string {
	return []string{ColCustomerID, ColGender, ColAge, ColTenure, ColChurnProb}
}

// Gender 是性别分类变量。取值集合固定且有序，编码时校验，而不是从数据中推断。
type Gender string

const (
	GenderFemale Gender = "Female" // 参考水平（one-hot 时被丢弃）
	GenderMale   Gender = "Male"
)

// GenderLevels 返回有序的类别集合，第一个为参考水平。
func GenderLevels() []Gender {
	return []Gender{GenderFemale, GenderMale}
}

// Valid 判断是否为已知类别。
func (g Gender) Valid() bool {
	for _, lvl := range GenderLevels() {
		if g == lvl {
			return true
		}
	}
	return false
}

func (g Gender) String() string { return string(g) }

// CustomerRecord 是两张原始表按 CustomerId 合并后的一行。
type CustomerRecord struct {
	CustomerID int64
	Gender     Gender
	Age        int

	Tenure          int
	Balance         float64
	NumOfProducts   int
	HasCrCard       int // {0,1}
	IsActiveMember  int // {0,1}
	EstimatedSalary float64
	CreditScore     int

	// Exited 保留原始取值；标签构造时显式判断是否等于 1。
	Exited string
}

// Feature 按列名取数值特征。Gender / Exited 不是数值特征，返回 false。
func (r CustomerRecord) Feature(name string) (float64, bool) {
	switch name {
	case ColCreditScore:
		return float64(r.CreditScore), true
	case ColAge:
		return float64(r.Age), true
	case ColTenure:
		return float64(r.Tenure), true
	case ColBalance:
		return r.Balance, true
	case ColNumOfProducts:
		return float64(r.NumOfProducts), true
	case ColHasCrCard:
		return float64(r.HasCrCard), true
	case ColIsActiveMember:
		return float64(r.IsActiveMember), true
	case ColEstimatedSalary:
		return r.EstimatedSalary, true
	default:
		return 0, false
	}
}
