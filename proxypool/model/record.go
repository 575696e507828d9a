package model

import "time"

// Status values for ProxyRecord. Only one value is defined today; the field
// exists so store consumers can filter without schema changes later.
const StatusActive = "active"

// ProxyRecord 是主池中一条代理记录。记录由存储层持有，各循环只操作瞬时副本。
// The wire format uses unix seconds (float) so existing store consumers keep
// working unchanged.
type ProxyRecord struct {
	Address     string  `json:"address"`      // "host:port"
	CreatedAt   float64 `json:"created_at"`   // unix seconds
	LastChecked float64 `json:"last_checked"` // unix seconds
	Status      string  `json:"status"`
}

// NewProxyRecord 创建一条刚通过首次探测的主池记录。
func NewProxyRecord(address string, now time.Time) ProxyRecord {
	ts := unixSeconds(now)
	return ProxyRecord{
		Address:     address,
		CreatedAt:   ts,
		LastChecked: ts,
		Status:      StatusActive,
	}
}

// Age 返回记录自创建以来的时长。
func (r ProxyRecord) Age(now time.Time) time.Duration {
	return time.Duration((unixSeconds(now) - r.CreatedAt) * float64(time.Second))
}

// Touch 在一次成功复检后刷新 last_checked。
func (r *ProxyRecord) Touch(now time.Time) {
	r.LastChecked = unixSeconds(now)
}

// StableRecord 是稳定池中一条记录：晋升时写入一次，之后不再修改。
// OriginalKey 仅作历史追溯，不是有效外键。
type StableRecord struct {
	Address     string  `json:"address"`
	PromotedAt  float64 `json:"promoted_at"` // unix seconds
	OriginalKey string  `json:"original_key"`
	AgeSeconds  float64 `json:"age_seconds"`
}

// NewStableRecord 由一条到龄的主池记录构造晋升记录。
func NewStableRecord(key string, rec ProxyRecord, now time.Time) StableRecord {
	return StableRecord{
		Address:     rec.Address,
		PromotedAt:  unixSeconds(now),
		OriginalKey: key,
		AgeSeconds:  unixSeconds(now) - rec.CreatedAt,
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
