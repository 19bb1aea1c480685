package main

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSources 生成一对可拟合的原始表，返回第一个客户的 id
func writeSources(t *testing.T, dir string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(99))
	var cust, pers strings.Builder
	cust.WriteString("CustomerId,CreditScore,Tenure,Balance,NumOfProducts,HasCrCard,IsActiveMember,EstimatedSalary,Exited\n")
	pers.WriteString("CustomerId,Surname,Gender,Age\n")
	for i := 0; i < 400; i++ {
		id := 15600000 + i
		age := 18 + rng.Intn(60)
		active := rng.Intn(2)
		gender := []string{"Female", "Male"}[rng.Intn(2)]
		z := -1.0 + 0.06*float64(age-40) - 0.8*float64(active)
		exited := 0
		if rng.Float64() < 1/(1+math.Exp(-z)) {
			exited = 1
		}
		fmt.Fprintf(&cust, "%d,%d,%d,%.2f,%d,%d,%d,%.2f,%d\n",
			id, 350+rng.Intn(501), rng.Intn(11), rng.Float64()*150000,
			1+rng.Intn(4), rng.Intn(2), active, 20000+rng.Float64()*150000, exited)
		fmt.Fprintf(&pers, "%d,S%d,%s,%d\n", id, i, gender, age)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customer.csv"), []byte(cust.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "personal.csv"), []byte(pers.String()), 0o644))
	return "15600000"
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_BuildThenQuery(t *testing.T) {
	dir := t.TempDir()
	first := writeSources(t, dir)
	t.Setenv("CHURN_CUSTOMER_PATH", filepath.Join(dir, "customer.csv"))
	t.Setenv("CHURN_PERSONAL_PATH", filepath.Join(dir, "personal.csv"))
	t.Setenv("CHURN_OUTPUT_PATH", filepath.Join(dir, "scored.csv"))
	t.Setenv("CHURN_METRICS_TEXTFILE", filepath.Join(dir, "churn.prom"))

	out, err := run(t, "build", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "joined=400")
	assert.Contains(t, out, "Highest churn customer:")
	assert.FileExists(t, filepath.Join(dir, "scored.csv"))
	assert.FileExists(t, filepath.Join(dir, "churn.prom"))

	out, err = run(t, "lookup", first, "--log-level", "error")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Churn probability for CustomerId "+first+" = 0."), out)

	out, err = run(t, "lookup", "99999999", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "Error: CustomerId not found in dataset.\n", out)

	out, err = run(t, "top", "--log-level", "error")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, []string{"Gender", "Age", "Tenure"}, strings.Fields(lines[0]))

	out, err = run(t, "top", "-k", "3", "--log-level", "error")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	out, err = run(t, "where", `row.Age >= 70`, "--log-level", "error")
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		assert.GreaterOrEqual(t, strings.Fields(line)[2], "70")
	}
}

func TestCLI_LookupFromRedis(t *testing.T) {
	dir := t.TempDir()
	first := writeSources(t, dir)
	mr := miniredis.RunT(t)
	t.Setenv("CHURN_CUSTOMER_PATH", filepath.Join(dir, "customer.csv"))
	t.Setenv("CHURN_PERSONAL_PATH", filepath.Join(dir, "personal.csv"))
	t.Setenv("CHURN_OUTPUT_PATH", filepath.Join(dir, "scored.csv"))
	t.Setenv("CHURN_REDIS_ENABLED", "true")
	t.Setenv("CHURN_REDIS_ADDR", mr.Addr())

	_, err := run(t, "build", "--log-level", "error")
	require.NoError(t, err)

	out, err := run(t, "lookup", first, "--redis", "--log-level", "error")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Churn probability for CustomerId "+first+" = 0."), out)

	out, err = run(t, "lookup", "99999999", "--redis", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "Error: CustomerId not found in dataset.\n", out)

	out, err = run(t, "lookup", "abc", "--redis", "--log-level", "error")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Error: "), out)
}

func TestCLI_BuildMissingSource(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHURN_CUSTOMER_PATH", filepath.Join(dir, "missing.csv"))
	t.Setenv("CHURN_PERSONAL_PATH", filepath.Join(dir, "missing2.csv"))
	t.Setenv("CHURN_OUTPUT_PATH", filepath.Join(dir, "scored.csv"))

	_, err := run(t, "build", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source table not found")
	assert.NoFileExists(t, filepath.Join(dir, "scored.csv"))
}
