package proxypool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"proxykeeper/internal/shared/logger"
	"proxykeeper/internal/shared/types"
	"proxykeeper/proxypool/gate"
	"proxykeeper/proxypool/model"
	"proxykeeper/proxypool/provider"
	"proxykeeper/proxypool/storage"
)

// Prober 是一次受限时可达性探测。*validator.Validator 实现了它。
type Prober interface {
	Probe(ctx context.Context, address string) error
}

// Manager 是代理池模块的总控制器：三个各自定时的循环
// （拉取、清理、晋升）共享同一个存储和同一个并发闸门。
//
// 跨循环没有任何客户端锁：存储操作全部按 key 幂等，
// 交错执行产生的短暂不一致由清理循环自愈。
type Manager struct {
	cfg       *types.Config
	store     storage.Store
	providers []provider.Provider
	prober    Prober
	gate      *gate.Gate

	// 调度器与生命周期管理
	stopChan chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time // 可替换，便于测试
}

// NewManager 创建并初始化代理池管理器。
func NewManager(cfg *types.Config, store storage.Store, prober Prober, g *gate.Gate) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		prober:   prober,
		gate:     g,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// AddProvider 添加一个候选来源到管理器。
func (m *Manager) AddProvider(p provider.Provider) {
	m.providers = append(m.providers, p)
}

// Start 确认存储可达后启动三个循环。首次存储接触失败是唯一的致命错误，
// 直接返回给调用方；之后任何错误都只在各自的迭代边界处理。
func (m *Manager) Start(ctx context.Context) error {
	l := logger.WithComponent("ProxyPool/Manager")

	if _, err := m.store.ListProxies(ctx); err != nil {
		return fmt.Errorf("initial store contact failed: %w", err)
	}

	l.Info().
		Dur("fetch_interval", m.cfg.FetchInterval()).
		Dur("cleanup_interval", m.cfg.CleanupInterval()).
		Dur("promotion_interval", m.cfg.PromotionInterval()).
		Int("concurrency_limit", m.gate.Size()).
		Msg("Manager starting...")

	m.wg.Add(3)
	go m.loop(ctx, m.cfg.FetchInterval(), m.runFetchCycle)
	go m.loop(ctx, m.cfg.CleanupInterval(), m.runCleanupCycle)
	go m.loop(ctx, m.cfg.PromotionInterval(), m.runPromotionCycle)
	return nil
}

// Stop 停止接受新的迭代并等待进行中的迭代结束。
// 在途探测自行完成或超时，不回滚任何已写入的变更。
func (m *Manager) Stop() {
	close(m.stopChan)
	m.wg.Wait()
	logger.Info().Msg("ProxyPool Manager gracefully stopped.")
}

// loop 以固定周期驱动一个迭代函数。迭代在循环 goroutine 内同步执行，
// 绝不与自己重叠：跑过周期的迭代只会推迟下一个 tick。
func (m *Manager) loop(ctx context.Context, interval time.Duration, run func(ctx context.Context)) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run(ctx)
	for {
		select {
		case <-ticker.C:
			run(ctx)
		case <-m.stopChan:
			return
		}
	}
}

// runFetchCycle 执行一次“拉取候选 -> 验证 -> 入主池”迭代。
func (m *Manager) runFetchCycle(ctx context.Context) {
	l := logger.WithComponent("ProxyPool/Fetcher")

	candidates := m.fetchCandidates(ctx)
	if len(candidates) == 0 {
		l.Debug().Msg("No candidates this cycle.")
		return
	}

	existing, err := m.store.ListProxies(ctx)
	if err != nil {
		l.Error().Err(err).Msg("Failed to read main pool, skipping fetch cycle.")
		return
	}

	// 去重集合是对上一次快照的尽力而为检查，不做强互斥；
	// 迭代内的并发插入由 seen 自身的互斥锁挡掉。
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.Address] = struct{}{}
	}

	var (
		mu     sync.Mutex
		added  int
		failed int
		wg     sync.WaitGroup
	)

	l.Info().Int("count", len(candidates)).Msg("Validating candidate batch...")

	for _, addr := range candidates {
		mu.Lock()
		_, dup := seen[addr]
		mu.Unlock()
		if dup {
			continue
		}

		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			if err := m.gate.Acquire(ctx); err != nil {
				return
			}
			defer m.gate.Release()

			if err := m.prober.Probe(ctx, addr); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			mu.Lock()
			if _, dup := seen[addr]; dup {
				mu.Unlock()
				return
			}
			seen[addr] = struct{}{}
			mu.Unlock()

			rec := model.NewProxyRecord(addr, m.now())
			if _, err := m.store.PutProxy(ctx, "", rec); err != nil {
				l.Error().Err(err).Str("address", addr).Msg("Failed to store new proxy.")
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			l.Info().Str("address", addr).Msg("[+] ADDED")
			mu.Lock()
			added++
			mu.Unlock()
		}(addr)
	}
	wg.Wait()

	l.Info().
		Int("candidates", len(candidates)).
		Int("added", added).
		Int("failed", failed).
		Msg("Fetch cycle complete.")
}

// fetchCandidates 并发执行所有候选来源并合并结果，总量封顶在批大小。
// 来源失败只记日志，不影响其余来源。
func (m *Manager) fetchCandidates(ctx context.Context) []string {
	l := logger.WithComponent("ProxyPool/Fetcher")

	var wg sync.WaitGroup
	fetchedChan := make(chan []string, len(m.providers))

	for _, p := range m.providers {
		wg.Add(1)
		go func(p provider.Provider) {
			defer wg.Done()
			addrs, err := p.Fetch(ctx, m.cfg.FetchBatchSize)
			if err != nil {
				l.Warn().Err(err).Str("source", p.Name()).Msg("Provider failed.")
				return
			}
			if len(addrs) > 0 {
				fetchedChan <- addrs
			}
		}(p)
	}
	wg.Wait()
	close(fetchedChan)

	merged := make([]string, 0, m.cfg.FetchBatchSize)
	unique := make(map[string]struct{})
	for addrs := range fetchedChan {
		for _, addr := range addrs {
			if len(merged) >= m.cfg.FetchBatchSize {
				return merged
			}
			if _, ok := unique[addr]; ok {
				continue
			}
			unique[addr] = struct{}{}
			merged = append(merged, addr)
		}
	}
	return merged
}

// runCleanupCycle 对两个池的每条记录重新探测一次。
// 单次失败即删除：宁可误杀一个抖动的代理，也不留死代理在池里，
// 恢复的代理会被拉取循环重新发现。
func (m *Manager) runCleanupCycle(ctx context.Context) {
	l := logger.WithComponent("ProxyPool/Cleaner")

	proxies, err := m.store.ListProxies(ctx)
	if err != nil {
		l.Error().Err(err).Msg("Failed to read main pool, skipping cleanup cycle.")
		return
	}
	stable, err := m.store.ListStable(ctx)
	if err != nil {
		l.Error().Err(err).Msg("Failed to read stable pool, skipping cleanup cycle.")
		return
	}
	if len(proxies)+len(stable) == 0 {
		return
	}

	l.Debug().Int("main", len(proxies)).Int("stable", len(stable)).Msg("Scanning pools...")

	var (
		mu      sync.Mutex
		removed int
		failed  int
		wg      sync.WaitGroup
	)

	for key, rec := range proxies {
		wg.Add(1)
		go func(key string, rec model.ProxyRecord) {
			defer wg.Done()

			if err := m.gate.Acquire(ctx); err != nil {
				return
			}
			defer m.gate.Release()

			if err := m.prober.Probe(ctx, rec.Address); err != nil {
				if err := m.store.DeleteProxy(ctx, key); err != nil {
					l.Error().Err(err).Str("address", rec.Address).Msg("Failed to delete dead proxy.")
					mu.Lock()
					failed++
					mu.Unlock()
					return
				}
				l.Warn().Str("address", rec.Address).Msg("[-] REMOVED")
				mu.Lock()
				removed++
				mu.Unlock()
				return
			}

			// 探测成功才刷新 last_checked；稳定池记录不携带可变字段。
			rec.Touch(m.now())
			if _, err := m.store.PutProxy(ctx, key, rec); err != nil {
				l.Error().Err(err).Str("address", rec.Address).Msg("Failed to refresh last_checked.")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(key, rec)
	}

	for key, rec := range stable {
		wg.Add(1)
		go func(key string, rec model.StableRecord) {
			defer wg.Done()

			if err := m.gate.Acquire(ctx); err != nil {
				return
			}
			defer m.gate.Release()

			if err := m.prober.Probe(ctx, rec.Address); err != nil {
				if err := m.store.DeleteStable(ctx, key); err != nil {
					l.Error().Err(err).Str("address", rec.Address).Msg("Failed to delete dead stable proxy.")
					mu.Lock()
					failed++
					mu.Unlock()
					return
				}
				l.Warn().Str("address", rec.Address).Msg("[-] REMOVED from stable")
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}(key, rec)
	}
	wg.Wait()

	if removed > 0 || failed > 0 {
		l.Info().Int("removed", removed).Int("failed", failed).Msg("Cleanup cycle complete.")
	}
}

// runPromotionCycle 将到龄的主池记录搬进稳定池。
// 先写稳定池、后删主池：中途崩溃留下的是可恢复的重复，而不是丢失。
// 两步之间没有跨集合事务，重复由清理循环自愈。
func (m *Manager) runPromotionCycle(ctx context.Context) {
	l := logger.WithComponent("ProxyPool/Promoter")

	proxies, err := m.store.ListProxies(ctx)
	if err != nil {
		l.Error().Err(err).Msg("Failed to read main pool, skipping promotion cycle.")
		return
	}
	if len(proxies) == 0 {
		return
	}

	// 尽力而为地跳过已在稳定池中的地址；读取失败时照常晋升，
	// 重复条目可以容忍。
	stableSeen := make(map[string]struct{})
	if stable, err := m.store.ListStable(ctx); err == nil {
		for _, rec := range stable {
			stableSeen[rec.Address] = struct{}{}
		}
	} else {
		l.Warn().Err(err).Msg("Failed to read stable pool, promoting without duplicate check.")
	}

	now := m.now()
	threshold := m.cfg.PromotionAge()

	var promoted, failed int
	for key, rec := range proxies {
		if rec.Age(now) < threshold {
			continue
		}
		if _, ok := stableSeen[rec.Address]; ok {
			continue
		}

		stableRec := model.NewStableRecord(key, rec, now)
		if _, err := m.store.PutStable(ctx, "", stableRec); err != nil {
			l.Error().Err(err).Str("address", rec.Address).Msg("Failed to insert stable record.")
			failed++
			continue
		}
		if err := m.store.DeleteProxy(ctx, key); err != nil {
			// 记录此刻同时存在于两个池；下一轮晋升或清理会收敛。
			l.Error().Err(err).Str("address", rec.Address).Msg("Failed to remove promoted record from main pool.")
			failed++
			continue
		}

		stableSeen[rec.Address] = struct{}{}
		promoted++
		l.Info().
			Str("address", rec.Address).
			Int("age_seconds", int(stableRec.AgeSeconds)).
			Msg("[*] PROMOTED to stable")
	}

	if promoted > 0 || failed > 0 {
		l.Info().Int("promoted", promoted).Int("failed", failed).Msg("Promotion cycle complete.")
	}
}
