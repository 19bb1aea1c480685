// Package churnkit 是一个客户流失评分工具包。
//
// 设计要点：
// - Batch-then-serve: pipeline.Orchestrator 一次性生成评分表，query.Service 在其上只读查询
// - Stage 链: 合并、编码、拟合、预测、持久化、发布都是可替换的 pipeline.Stage
// - 统一错误: 所有领域错误都是 core.DomainError，可用 core.IsXXX 判断
package churnkit

import (
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/query"
)

// 轻量 facade：便于直接 import "churnkit" 使用核心抽象。
type (
	Orchestrator = pipeline.Orchestrator
	Sources      = pipeline.Sources
	Result       = pipeline.Result
	Stage        = pipeline.Stage
	Service      = query.Service
)

var (
	NewOrchestrator = pipeline.NewOrchestrator
	NewService      = query.NewService
)
