package types

import "time"

// PoolConf 包含三个循环与探测的全部行为配置。
// 所有字段都是可调常量，不在运行期协商。
type PoolConf struct {
	FetchIntervalSeconds     int    `ini:"fetch_interval_seconds"`
	FetchBatchSize           int    `ini:"fetch_batch_size"`
	CleanupIntervalSeconds   int    `ini:"cleanup_interval_seconds"`
	PromotionIntervalSeconds int    `ini:"promotion_interval_seconds"`
	PromotionAgeSeconds      int    `ini:"promotion_age_seconds"`
	ProbeTimeoutSeconds      int    `ini:"probe_timeout_seconds"`
	ConcurrencyLimit         int    `ini:"concurrency_limit"`
	CheckURL                 string `ini:"check_url"`
}

// ProviderConf 包含候选代理来源的配置。
type ProviderConf struct {
	APIURL         string `ini:"api_url"`
	EnableScrapers bool   `ini:"enable_scrapers"`
}

// StorageConf 选择并配置持久化后端。
type StorageConf struct {
	Backend  string `ini:"backend"` // "firebase" or "file"
	BaseURL  string `ini:"base_url"`
	FilePath string `ini:"file_path"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是 keeper 的统一配置结构体。
type Config struct {
	PoolConf     `ini:"pool"`
	ProviderConf `ini:"provider"`
	StorageConf  `ini:"storage"`
	LogConf      `ini:"log"`
}

func (c *PoolConf) FetchInterval() time.Duration {
	return time.Duration(c.FetchIntervalSeconds) * time.Second
}

func (c *PoolConf) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

func (c *PoolConf) PromotionInterval() time.Duration {
	return time.Duration(c.PromotionIntervalSeconds) * time.Second
}

func (c *PoolConf) PromotionAge() time.Duration {
	return time.Duration(c.PromotionAgeSeconds) * time.Second
}

func (c *PoolConf) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// ApplyDefaults 为未设置的字段填入设计默认值，配置文件可以只写差异项。
func (c *Config) ApplyDefaults() {
	if c.FetchIntervalSeconds <= 0 {
		c.FetchIntervalSeconds = 20
	}
	if c.FetchBatchSize <= 0 {
		c.FetchBatchSize = 2000
	}
	if c.CleanupIntervalSeconds <= 0 {
		c.CleanupIntervalSeconds = 2
	}
	if c.PromotionIntervalSeconds <= 0 {
		c.PromotionIntervalSeconds = 30
	}
	if c.PromotionAgeSeconds <= 0 {
		c.PromotionAgeSeconds = 600
	}
	if c.ProbeTimeoutSeconds <= 0 {
		c.ProbeTimeoutSeconds = 10
	}
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = 200
	}
	if c.CheckURL == "" {
		c.CheckURL = "http://httpbin.org/ip"
	}
	if c.Backend == "" {
		c.Backend = "file"
	}
	if c.FilePath == "" {
		c.FilePath = "proxies.json"
	}
	if c.Level == "" {
		c.Level = "info"
	}
}
