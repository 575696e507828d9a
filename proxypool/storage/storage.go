package storage

import (
	"context"

	"proxykeeper/proxypool/model"
)

// Collection paths in the backing record store.
const (
	CollectionProxies = "proxies"
	CollectionStable  = "stable_proxies"
)

// Store 接口定义了代理数据持久化的行为：对主池与稳定池两个集合的
// 全量读取、按 key 写入与按 key 删除。
//
// 语义约定（各循环的正确性依赖于此）：
//   - List* 返回的是快照，相对并发写入者可能过期；
//   - Put* 的 key 为空串时创建新记录并返回生效的 key，否则整条覆盖；
//   - Delete* 幂等，删除不存在的 key 不是错误；
//   - 不提供跨集合事务，晋升的两步写入由调用方自行排序。
//
// 实现必须是并发安全的。
type Store interface {
	ListProxies(ctx context.Context) (map[string]model.ProxyRecord, error)
	ListStable(ctx context.Context) (map[string]model.StableRecord, error)

	PutProxy(ctx context.Context, key string, rec model.ProxyRecord) (string, error)
	PutStable(ctx context.Context, key string, rec model.StableRecord) (string, error)

	DeleteProxy(ctx context.Context, key string) error
	DeleteStable(ctx context.Context, key string) error
}
