package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/store"
)

// KVLookup 从 ScorePublisher 写入的键值存储中查询，供不持有评分表文件的进程使用。
type KVLookup struct {
	Store  core.KeyValueStore
	Prefix string
}

// NewKVLookup 创建查询器，prefix 为空时使用 store.DefaultKeyPrefix
func NewKVLookup(kv core.KeyValueStore, prefix string) *KVLookup {
	if prefix == "" {
		prefix = store.DefaultKeyPrefix
	}
	return &KVLookup{Store: kv, Prefix: prefix}
}

// ProbabilityFor 读取单个客户的 churn_prob；不存在时返回 core.ErrCustomerNotFound。
func (l *KVLookup) ProbabilityFor(ctx context.Context, id int64) (float64, error) {
	key := l.keys().ProbKey(id)
	raw, err := l.Store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return 0, core.ErrCustomerNotFound
		}
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	p, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, core.NewInvalidInputError(core.ModuleQuery, "corrupt value at %s: %q", key, raw)
	}
	return p, nil
}

// TopIDs 按 churn_prob 降序返回前 k 个 CustomerId。
// 同分时按 CustomerId 字符串降序（Redis ZREVRANGE 语义），
// 与 Service.TopK 保持原表顺序不同；需要与评分表一致的排名时用 Service.TopK。
func (l *KVLookup) TopIDs(ctx context.Context, k int) ([]int64, error) {
	if k <= 0 {
		return nil, nil
	}
	members, err := l.Store.ZRevRange(ctx, l.keys().RankKey(), 0, int64(k-1))
	if err != nil {
		return nil, fmt.Errorf("zrevrange: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, core.NewInvalidInputError(core.ModuleQuery, "corrupt rank member %q", m)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// keys 复用发布端的 key 布局
func (l *KVLookup) keys() *store.ScorePublisher {
	return &store.ScorePublisher{Prefix: l.Prefix}
}
