package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/churnkit/metrics"
	"github.com/rushteam/churnkit/model"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/store"
)

func newBuildCmd(a *app) *cobra.Command {
	var customer, personal, output string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fit the churn model and write the scored table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if customer != "" {
				a.cfg.Sources.Customer = customer
			}
			if personal != "" {
				a.cfg.Sources.Personal = personal
			}
			if output != "" {
				a.cfg.Output = output
			}
			return runBuild(cmd, a)
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "Customer table path (overrides config)")
	cmd.Flags().StringVar(&personal, "personal", "", "Personal table path (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Scored table output path (overrides config)")
	return cmd
}

func runBuild(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	cfg := a.cfg

	o := pipeline.NewOrchestrator(cfg.Output, a.log)
	o.Trainer = &model.Trainer{MaxIter: cfg.Model.MaxIter, Tol: cfg.Model.Tol}
	o.Metrics = metrics.NewRecorder()

	if cfg.Redis.Enabled {
		kv, err := store.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		defer kv.Close()
		o.Publisher = store.NewScorePublisher(kv, cfg.Redis.KeyPrefix)
	}

	res, err := o.Build(ctx, pipeline.Sources{
		CustomerPath: cfg.Sources.Customer,
		PersonalPath: cfg.Sources.Personal,
	})
	if cfg.Metrics.Textfile != "" {
		if werr := o.Metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			a.log.WithError(werr).Warn("write metrics textfile failed", map[string]interface{}{
				"path": cfg.Metrics.Textfile,
			})
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s := res.Summary
	fmt.Fprintf(out, "Rows: customer=%d personal=%d joined=%d\n", s.CustomerRows, s.PersonalRows, s.JoinedRows)
	fmt.Fprintf(out, "Highest churn customer: %d -> %.4f\n", s.Highest.CustomerID, s.Highest.ChurnProb)
	fmt.Fprintf(out, "Lowest churn customer: %d -> %.4f\n", s.Lowest.CustomerID, s.Lowest.ChurnProb)
	fmt.Fprintln(out, "Mean churn_prob by Gender:")
	for _, m := range s.MeanByGender {
		fmt.Fprintf(out, "  %-8s %.4f\n", m.Gender, m.ChurnProb)
	}
	fmt.Fprintf(out, "Saved to %s\n", cfg.Output)
	return nil
}
