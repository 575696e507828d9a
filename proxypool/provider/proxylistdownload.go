package provider

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"proxykeeper/internal/shared/logger"
)

// ProxyListDownloadProvider 实现 Provider 接口，抓取 proxy-list.download
// 的免费 HTTP 代理表格。
type ProxyListDownloadProvider struct {
	client *http.Client
}

// NewProxyListDownloadProvider 创建一个新的实例。
func NewProxyListDownloadProvider() *ProxyListDownloadProvider {
	return &ProxyListDownloadProvider{
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (p *ProxyListDownloadProvider) Name() string {
	return "proxy-list.download"
}

// Fetch 抓取并解析表格页。
func (p *ProxyListDownloadProvider) Fetch(ctx context.Context, limit int) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Provider")
	l.Debug().Str("source", p.Name()).Msg("Starting scrape...")

	url := "https://www.proxy-list.download/HTTP"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", p.Name(), err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page for %s: %w", p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code (%d) from %s", resp.StatusCode, p.Name())
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", p.Name(), err)
	}

	var addresses []string
	doc.Find("table#example1 tbody#tabli tr").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if limit > 0 && len(addresses) >= limit {
			return false
		}
		ip := strings.TrimSpace(sel.Find("td").Eq(0).Text())
		port := strings.TrimSpace(sel.Find("td").Eq(1).Text())
		if ip == "" || port == "" {
			return true
		}
		addr := net.JoinHostPort(ip, port)
		if _, _, err := net.SplitHostPort(addr); err != nil {
			l.Debug().Str("addr", addr).Str("source", p.Name()).Msg("Skipping malformed table row.")
			return true
		}
		addresses = append(addresses, addr)
		return true
	})

	l.Info().Int("count", len(addresses)).Str("source", p.Name()).Msg("Fetched candidate list.")
	return addresses, nil
}
