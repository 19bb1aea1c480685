package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	customerHeader = []string{
		"CustomerId", "CreditScore", "Tenure", "Balance", "NumOfProducts",
		"HasCrCard", "IsActiveMember", "EstimatedSalary", "Exited",
	}
	personalHeader = []string{"CustomerId", "Surname", "Gender", "Age"}
)

// fixture 是一组写到临时目录的原始表
type fixture struct {
	Sources      Sources
	Output       string
	CustomerIDs  []int64 // 客户表中可匹配的 id，按文件顺序
	OnlyCustomer int     // 只出现在客户表中的行数
	OnlyPersonal int     // 只出现在个人信息表中的行数
}

// newFixture 用固定种子生成 n 个可匹配的客户，外加若干只出现在一侧的行。
// 标签按一个已知的逻辑回归模型抽样，数据不存在完全可分。
func newFixture(t *testing.T, n int, seed int64) fixture {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	dir := t.TempDir()

	f := fixture{
		Sources: Sources{
			CustomerPath: filepath.Join(dir, "data_customer.csv"),
			PersonalPath: filepath.Join(dir, "data_personal.csv"),
		},
		Output:       filepath.Join(dir, "data_with_churn_prob.csv"),
		OnlyCustomer: 5,
		OnlyPersonal: 3,
	}

	customers := [][]string{customerHeader}
	personals := make([][]string, 0, n+f.OnlyPersonal)
	for i := 0; i < n; i++ {
		id := int64(15600000 + i*7)
		f.CustomerIDs = append(f.CustomerIDs, id)

		gender := "Female"
		male := 0.0
		if rng.Intn(2) == 1 {
			gender, male = "Male", 1
		}
		age := 18 + rng.Intn(60)
		credit := 350 + rng.Intn(501)
		tenure := rng.Intn(11)
		balance := 0.0
		if rng.Intn(3) > 0 {
			balance = math.Round(rng.Float64()*200000*100) / 100
		}
		products := 1 + rng.Intn(4)
		hasCard := rng.Intn(2)
		active := rng.Intn(2)
		salary := math.Round((10000+rng.Float64()*190000)*100) / 100

		z := -1.2 + 0.06*float64(age-40) - 0.9*float64(active) - 0.35*male +
			0.000004*balance - 0.002*float64(credit-650)
		exited := "0"
		if rng.Float64() < 1/(1+math.Exp(-z)) {
			exited = "1"
		}

		customers = append(customers, []string{
			strconv.FormatInt(id, 10), strconv.Itoa(credit), strconv.Itoa(tenure),
			strconv.FormatFloat(balance, 'f', 2, 64), strconv.Itoa(products),
			strconv.Itoa(hasCard), strconv.Itoa(active),
			strconv.FormatFloat(salary, 'f', 2, 64), exited,
		})
		personals = append(personals, []string{
			strconv.FormatInt(id, 10), fmt.Sprintf("Surname%d", i), gender, strconv.Itoa(age),
		})
	}
	for i := 0; i < f.OnlyCustomer; i++ {
		customers = append(customers, []string{
			strconv.Itoa(19000000 + i), "600", "3", "0.00", "1", "1", "1", "50000.00", "0",
		})
	}
	for i := 0; i < f.OnlyPersonal; i++ {
		personals = append(personals, []string{
			strconv.Itoa(18000000 + i), "Nobody", "Male", "30",
		})
	}
	// 个人信息表打乱顺序，合并结果仍应按客户表顺序
	rng.Shuffle(len(personals), func(i, j int) { personals[i], personals[j] = personals[j], personals[i] })
	personals = append([][]string{personalHeader}, personals...)

	writeCSV(t, f.Sources.CustomerPath, customers)
	writeCSV(t, f.Sources.PersonalPath, personals)
	return f
}

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	w := csv.NewWriter(file)
	require.NoError(t, w.WriteAll(records))
}

// setPersonalGender 改写个人信息表中某个客户的 Gender
func setPersonalGender(t *testing.T, f fixture, id int64, gender string) {
	t.Helper()
	file, err := os.Open(f.Sources.PersonalPath)
	require.NoError(t, err)
	records, err := csv.NewReader(file).ReadAll()
	file.Close()
	require.NoError(t, err)

	want := strconv.FormatInt(id, 10)
	for _, rec := range records[1:] {
		if rec[0] == want {
			rec[2] = gender
		}
	}
	writeCSV(t, f.Sources.PersonalPath, records)
}
