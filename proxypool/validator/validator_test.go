package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// proxyAddr strips the scheme from an httptest server URL so it can pose as
// an HTTP proxy ("host:port").
func proxyAddr(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestProbe_ReachableProxy(t *testing.T) {
	// 对 http:// 目标，客户端会把绝对 URI 请求发给代理本身，
	// 所以一个普通的 httptest server 就能扮演代理。
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := New("http://example.com/ip", 2*time.Second)
	require.NoError(t, v.Probe(context.Background(), proxyAddr(srv)))
	require.Equal(t, "example.com", gotHost)
}

func TestProbe_BadStatusIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := New("http://example.com/ip", 2*time.Second)
	err := v.Probe(context.Background(), proxyAddr(srv))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadStatus)
	require.Equal(t, KindBadStatus, Classify(err))
}

func TestProbe_TimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	v := New("http://example.com/ip", 50*time.Millisecond)
	err := v.Probe(context.Background(), proxyAddr(srv))
	require.Error(t, err)
	require.Equal(t, KindTimeout, Classify(err))
}

func TestProbe_ConnectionRefusedIsUnreachable(t *testing.T) {
	// 先启动再关闭，拿到一个确定无人监听的端口。
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := proxyAddr(srv)
	srv.Close()

	v := New("http://example.com/ip", 2*time.Second)
	err := v.Probe(context.Background(), addr)
	require.Error(t, err)
	require.Equal(t, KindConnect, Classify(err))
}

func TestProbe_ExactlyOneRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := New("http://example.com/ip", 2*time.Second)
	_ = v.Probe(context.Background(), proxyAddr(srv))
	require.EqualValues(t, 1, hits.Load())
}

func TestClassify_Nil(t *testing.T) {
	require.Equal(t, "", Classify(nil))
}
