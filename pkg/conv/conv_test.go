package conv

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1.5", 1.5, true},
		{" 83807.86 ", 83807.86, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFloat(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"42", 42, true},
		{"42.0", 42, true},
		{"-3", -3, true},
		{"42.5", 0, false},
		{"x", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseInt(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 40.0, CellValue("40"))
	assert.Equal(t, "Male", CellValue("Male"))
}

func TestConvertSlice(t *testing.T) {
	out := ConvertSlice([]string{"1", "x", "3"}, func(s string) (int, bool) {
		i, err := strconv.Atoi(s)
		return i, err == nil
	})
	assert.Equal(t, []int{1, 3}, out)
	assert.Nil(t, ConvertSlice[string, int](nil, nil))
}
