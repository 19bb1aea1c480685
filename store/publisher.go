package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rushteam/churnkit/core"
)

// DefaultKeyPrefix 是评分发布使用的默认 key 前缀
const DefaultKeyPrefix = "churn:"

// ScorePublisher 把评分表推送到键值存储：
//   - <prefix>rank            有序集合，member = CustomerId，score = churn_prob
//   - <prefix>prob:<id>       单个客户的 churn_prob（十进制字符串）
//
// 同一 CustomerId 出现多行时只发布第一行，与查询服务的"取第一条"语义一致。
type ScorePublisher struct {
	Store  core.KeyValueStore
	Prefix string
}

// NewScorePublisher 创建发布器，prefix 为空时使用 DefaultKeyPrefix
func NewScorePublisher(kv core.KeyValueStore, prefix string) *ScorePublisher {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &ScorePublisher{Store: kv, Prefix: prefix}
}

func (p *ScorePublisher) Name() string { return "publish." + p.Store.Name() }

// RankKey 返回排名有序集合的 key
func (p *ScorePublisher) RankKey() string { return p.Prefix + "rank" }

// ProbKey 返回单个客户概率的 key
func (p *ScorePublisher) ProbKey(id int64) string {
	return p.Prefix + "prob:" + strconv.FormatInt(id, 10)
}

// Publish 发布整张评分表，返回实际发布的客户数。
// 先删除上一次发布的全部 prob key 和排名集合，旧表中已不存在的客户随后查询不到。
func (p *ScorePublisher) Publish(ctx context.Context, table *core.ScoredTable) (int, error) {
	if err := p.clear(ctx); err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{}, len(table.Rows))
	for _, row := range table.Rows {
		if _, dup := seen[row.CustomerID]; dup {
			continue
		}
		seen[row.CustomerID] = struct{}{}

		member := strconv.FormatInt(row.CustomerID, 10)
		if err := p.Store.ZAdd(ctx, p.RankKey(), row.ChurnProb, member); err != nil {
			return 0, fmt.Errorf("zadd %s: %w", member, err)
		}
		if err := p.Store.Set(ctx, p.ProbKey(row.CustomerID), []byte(core.FormatProb(row.ChurnProb))); err != nil {
			return 0, fmt.Errorf("set %s: %w", p.ProbKey(row.CustomerID), err)
		}
	}
	return len(seen), nil
}

// clear 删除上一次发布留下的 key
func (p *ScorePublisher) clear(ctx context.Context) error {
	old, err := p.Store.ZRevRange(ctx, p.RankKey(), 0, -1)
	if err != nil {
		return fmt.Errorf("list %s: %w", p.RankKey(), err)
	}
	for _, member := range old {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		if err := p.Store.Delete(ctx, p.ProbKey(id)); err != nil {
			return fmt.Errorf("delete %s: %w", p.ProbKey(id), err)
		}
	}
	if err := p.Store.Delete(ctx, p.RankKey()); err != nil {
		return fmt.Errorf("reset %s: %w", p.RankKey(), err)
	}
	return nil
}
