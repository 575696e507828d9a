package provider

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"proxykeeper/internal/shared/logger"
)

// FreeProxyListProvider 实现 Provider 接口，用 colly 抓取
// free-proxy-list.net 的免费代理表格。
type FreeProxyListProvider struct {
	collector *colly.Collector
}

// NewFreeProxyListProvider 创建一个新的实例。
func NewFreeProxyListProvider() *FreeProxyListProvider {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"),
	)
	c.SetRequestTimeout(20 * time.Second)

	return &FreeProxyListProvider{
		collector: c,
	}
}

func (p *FreeProxyListProvider) Name() string {
	return "free-proxy-list.net"
}

// Fetch 抓取并解析表格页。colly 的回调在 Visit 内同步执行，
// 互斥锁只为防御未来启用异步模式。
func (p *FreeProxyListProvider) Fetch(ctx context.Context, limit int) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Provider")
	l.Debug().Str("source", p.Name()).Msg("Starting scrape...")

	var (
		addresses []string
		mu        sync.Mutex
	)

	c := p.collector.Clone()
	c.OnHTML("table.table tbody tr", func(e *colly.HTMLElement) {
		ip := strings.TrimSpace(e.ChildText("td:nth-child(1)"))
		port := strings.TrimSpace(e.ChildText("td:nth-child(2)"))
		if ip == "" || port == "" {
			return
		}
		addr := net.JoinHostPort(ip, port)
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return
		}
		mu.Lock()
		if limit <= 0 || len(addresses) < limit {
			addresses = append(addresses, addr)
		}
		mu.Unlock()
	})

	if err := c.Visit("https://free-proxy-list.net/"); err != nil {
		return nil, err
	}
	c.Wait()

	l.Info().Int("count", len(addresses)).Str("source", p.Name()).Msg("Fetched candidate list.")
	return addresses, nil
}
