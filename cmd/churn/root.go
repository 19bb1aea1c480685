package main

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/churnkit/config"
	"github.com/rushteam/churnkit/pkg/logger"
)

// app 是子命令共享的运行时依赖，在 PersistentPreRunE 中初始化
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "churn",
		Short:         "Customer churn scoring pipeline and query tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newBuildCmd(a),
		newLookupCmd(a),
		newTopCmd(a),
		newWhereCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}
