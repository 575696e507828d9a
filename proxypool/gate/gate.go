package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate 是进程级的出站探测并发闸门。三个循环共用同一个实例，
// 任何一次 Validator 调用都必须先 Acquire、结束后 Release。
// 不保证公平排队，稳态负载下不会饿死等待者。
type Gate struct {
	sem  *semaphore.Weighted
	size int64
}

// New 创建一个容量为 limit 的闸门。
func New(limit int) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{
		sem:  semaphore.NewWeighted(int64(limit)),
		size: int64(limit),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns a previously acquired slot.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Size 返回闸门容量，用于日志输出。
func (g *Gate) Size() int {
	return int(g.size)
}
