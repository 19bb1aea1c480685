package churnkit_test

import (
	"fmt"

	"github.com/rushteam/churnkit"
	"github.com/rushteam/churnkit/core"
)

func ExampleNewService() {
	table, _ := core.NewScoredTable(&core.Table{
		Columns: []string{"CustomerId", "Gender", "Age", "Tenure"},
		Rows: [][]string{
			{"15634602", "Female", "42", "2"},
			{"15619304", "Female", "42", "8"},
		},
	}, []float64{0.8123, 0.0456})

	svc, err := churnkit.NewService(table)
	if err != nil {
		fmt.Println(err)
		return
	}
	p, _ := svc.ProbabilityFor(15634602)
	fmt.Printf("%.4f\n", p)

	_, err = svc.ProbabilityFor(99999999)
	fmt.Println(err)
	// Output:
	// 0.8123
	// CustomerId not found in dataset.
}
