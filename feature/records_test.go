package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/churnkit/core"
)

func joinedTable() *core.Table {
	return &core.Table{
		Columns: []string{
			"CustomerId", "CreditScore", "Tenure", "Balance", "NumOfProducts", "HasCrCard",
			"IsActiveMember", "EstimatedSalary", "Exited", "Surname", "Gender", "Age",
		},
		Rows: [][]string{
			{"15634602", "619", "2", "0.0", "1", "1", "1", "101348.88", "1", "Hargrave", "Female", "42"},
			{"15647311", "608", "1", "83807.86", "1", "0", "1", "112542.58", "0", "Hill", "Female", "41"},
			{"15619304", "502", "8", "159660.8", "3", "1", "0", "113931.57", "Yes", "Onio", " Male ", "42.0"},
		},
	}
}

func TestParseRecords(t *testing.T) {
	records, err := ParseRecords(joinedTable())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, int64(15634602), records[0].CustomerID)
	assert.Equal(t, core.GenderFemale, records[0].Gender)
	assert.Equal(t, 619, records[0].CreditScore)
	assert.Equal(t, 83807.86, records[1].Balance)
	assert.Equal(t, core.GenderMale, records[2].Gender)
	assert.Equal(t, 42, records[2].Age)
}

func TestParseRecords_Errors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		tbl := joinedTable()
		tbl.Columns[1] = "Score"
		_, err := ParseRecords(tbl)
		require.Error(t, err)
		assert.True(t, core.IsEncodingError(err))
		assert.Contains(t, err.Error(), "CreditScore")
	})

	t.Run("non-numeric value", func(t *testing.T) {
		tbl := joinedTable()
		tbl.Rows[1][3] = "n/a"
		_, err := ParseRecords(tbl)
		require.Error(t, err)
		assert.True(t, core.IsEncodingError(err))
		assert.Contains(t, err.Error(), "row 2")
	})

	t.Run("fractional integer column", func(t *testing.T) {
		tbl := joinedTable()
		tbl.Rows[0][11] = "42.5"
		_, err := ParseRecords(tbl)
		assert.True(t, core.IsEncodingError(err))
	})
}

func TestLabel_ExplicitEquality(t *testing.T) {
	records, err := ParseRecords(joinedTable())
	require.NoError(t, err)
	// "Yes" 不等于 1，所以是 0
	assert.Equal(t, []float64{1, 0, 0}, Label(records))
}
