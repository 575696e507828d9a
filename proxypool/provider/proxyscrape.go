package provider

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"proxykeeper/internal/shared/logger"
)

// DefaultAPIURL is the proxyscrape bulk endpoint; it returns one "host:port"
// per line, up to the limit baked into the query.
const DefaultAPIURL = "https://api.proxyscrape.com/v4/free-proxy-list/get?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all&skip=0&limit=2000"

// ProxyScrapeProvider 实现 Provider 接口，从 proxyscrape 的批量 API 拉取
// 纯文本格式的候选列表。这是主要的候选来源。
type ProxyScrapeProvider struct {
	apiURL string
	client *http.Client
}

// NewProxyScrapeProvider 创建一个新的实例。apiURL 为空时使用 DefaultAPIURL。
func NewProxyScrapeProvider(apiURL string) *ProxyScrapeProvider {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &ProxyScrapeProvider{
		apiURL: apiURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (p *ProxyScrapeProvider) Name() string {
	return "proxyscrape.com"
}

// Fetch 拉取并解析候选列表，忽略空行与无法解析为 host:port 的行。
func (p *ProxyScrapeProvider) Fetch(ctx context.Context, limit int) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Provider")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", p.Name(), err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates from %s: %w", p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code (%d) from %s", resp.StatusCode, p.Name())
	}

	var addresses []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if limit > 0 && len(addresses) >= limit {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(line); err != nil {
			l.Debug().Str("line", line).Str("source", p.Name()).Msg("Skipping malformed candidate line.")
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", p.Name(), err)
	}

	l.Info().Int("count", len(addresses)).Str("source", p.Name()).Msg("Fetched candidate list.")
	return addresses, nil
}
