package query

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/logger"
	"github.com/rushteam/churnkit/store"
)

// TableLoader 读取一张评分表
type TableLoader func(ctx context.Context) (*core.ScoredTable, error)

// FileLoader 从持久化的评分表文件读取
func FileLoader(path string) TableLoader {
	return func(ctx context.Context) (*core.ScoredTable, error) {
		return store.ReadScoredTable(path)
	}
}

// Reloader 持有当前的 Service，并在评分表重新生成后整体替换。
//
// 读者通过 Current() 拿到的 Service 在替换后依然可用（不可变快照）。
// 并发的 Reload 调用会合并为一次读取。
type Reloader struct {
	load    TableLoader
	opts    []Option
	logger  logger.Logger
	current atomic.Pointer[Service]
	group   singleflight.Group
}

// NewReloader 创建 Reloader，不做首次加载
func NewReloader(load TableLoader, log logger.Logger, opts ...Option) *Reloader {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Reloader{load: load, opts: opts, logger: log}
}

// Current 返回当前的 Service；尚未成功加载过时返回 nil
func (r *Reloader) Current() *Service { return r.current.Load() }

// Reload 重新读取评分表并替换当前 Service。
// 失败时保留原 Service 不变。
func (r *Reloader) Reload(ctx context.Context) (*Service, error) {
	v, err, shared := r.group.Do("reload", func() (interface{}, error) {
		table, err := r.load(ctx)
		if err != nil {
			return nil, err
		}
		svc, err := NewService(table, r.opts...)
		if err != nil {
			return nil, err
		}
		r.current.Store(svc)
		return svc, nil
	})
	if err != nil {
		r.logger.WithError(err).Warn("reload failed, keeping previous table", nil)
		return nil, err
	}
	svc := v.(*Service)
	r.logger.Info("scored table reloaded", map[string]interface{}{
		"rows":      svc.Len(),
		"customers": len(svc.ids),
		"shared":    shared,
	})
	return svc, nil
}
