package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGate_BoundsConcurrency(t *testing.T) {
	g := New(2)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx))
	require.NoError(t, g.Acquire(ctx))

	// 第三个请求必须阻塞到超时。
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.Error(t, g.Acquire(waitCtx))

	g.Release()
	require.NoError(t, g.Acquire(ctx))
}

func TestGate_ReleaseUnblocksWaiter(t *testing.T) {
	g := New(1)
	ctx := context.Background()
	require.NoError(t, g.Acquire(ctx))

	done := make(chan error, 1)
	go func() {
		done <- g.Acquire(ctx)
	}()

	g.Release()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not unblocked by Release")
	}
}

func TestGate_ZeroLimitClampedToOne(t *testing.T) {
	g := New(0)
	require.Equal(t, 1, g.Size())
	require.NoError(t, g.Acquire(context.Background()))
}
