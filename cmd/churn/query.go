package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/churnkit/dashboard"
	"github.com/rushteam/churnkit/query"
	"github.com/rushteam/churnkit/store"
)

// loadService 读取持久化的评分表
func (a *app) loadService(cmd *cobra.Command) (*query.Service, error) {
	r := query.NewReloader(query.FileLoader(a.cfg.Output), a.log, query.WithTopN(a.cfg.Query.TopN))
	return r.Reload(cmd.Context())
}

func newLookupCmd(a *app) *cobra.Command {
	var fromRedis bool
	cmd := &cobra.Command{
		Use:   "lookup <customer-id>",
		Short: "Print the churn probability of one customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromRedis {
				return lookupRedis(cmd, a, args[0])
			}
			svc, err := a.loadService(cmd)
			if err != nil {
				return err
			}
			view := &dashboard.View{Service: svc}
			fmt.Fprintln(cmd.OutOrStdout(), view.ProbabilityText(args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromRedis, "redis", false, "Read from the published scores in Redis instead of the scored table")
	return cmd
}

func lookupRedis(cmd *cobra.Command, a *app, raw string) error {
	out := cmd.OutOrStdout()
	id, err := query.ParseID(raw)
	if err != nil {
		fmt.Fprintln(out, dashboard.ErrorText(err))
		return nil
	}
	kv, err := store.NewRedisStore(cmd.Context(), a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connect redis %s: %w", a.cfg.Redis.Addr, err)
	}
	defer kv.Close()

	p, err := query.NewKVLookup(kv, a.cfg.Redis.KeyPrefix).ProbabilityFor(cmd.Context(), id)
	if err != nil {
		if dashboard.IsDisplayable(err) {
			fmt.Fprintln(out, dashboard.ErrorText(err))
			return nil
		}
		return err
	}
	fmt.Fprintln(out, dashboard.ProbabilityText(id, p))
	return nil
}
