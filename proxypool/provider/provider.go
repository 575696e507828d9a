package provider

import "context"

// Provider 接口定义了从某个来源获取候选代理地址的行为。
type Provider interface {
	// Fetch 返回最多 limit 个 "host:port" 候选地址。
	// 实现者只负责获取与初步解析，不进行可达性验证。
	Fetch(ctx context.Context, limit int) ([]string, error)

	// Name 返回来源名称，用于日志记录。
	Name() string
}
