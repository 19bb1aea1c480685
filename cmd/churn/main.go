// Command churn 训练流失模型、生成评分表，并在评分表上查询。
//
//	churn build                 # 合并 → 编码 → 拟合 → 预测 → 写出评分表
//	churn lookup 15634602       # 单个客户的 churn_prob
//	churn top                   # churn_prob 最高的客户
//	churn where 'row.Age > 60'  # CEL 过滤
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rushteam/churnkit/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		config.Exitf("Error: %v", err)
	}
}
