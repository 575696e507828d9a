package validator

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"proxykeeper/internal/shared/logger"
)

// Probe failure kinds. Policy-wise they all collapse to "unreachable";
// the distinction only feeds logs.
const (
	KindTimeout   = "timeout"
	KindConnect   = "connect"
	KindBadStatus = "bad_status"
)

// ErrBadStatus 表示代理转发成功但目标返回了非 2xx 状态码。
var ErrBadStatus = errors.New("non-2xx response through proxy")

// Validator issues single bounded reachability probes through candidate
// proxies against a fixed check URL. It is stateless and safe for any number
// of concurrent callers; retry policy belongs to the caller.
type Validator struct {
	checkURL string
	timeout  time.Duration
}

// New 创建一个 Validator。checkURL 为空时使用 http://httpbin.org/ip。
func New(checkURL string, timeout time.Duration) *Validator {
	if checkURL == "" {
		checkURL = "http://httpbin.org/ip"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Validator{checkURL: checkURL, timeout: timeout}
}

// Probe 通过 address 指向的代理对 checkURL 发起一次受限时探测。
// 返回 nil 表示可达；任何错误（网络错误、超时、非 2xx）表示不可达。
// 每次调用恰好一次出站请求，内部不做重试。
// 地址形如 "host:port"（按 HTTP 代理探测）或 "socks5://host:port"。
func (v *Validator) Probe(ctx context.Context, address string) error {
	var err error
	if strings.HasPrefix(address, "socks5://") {
		err = v.probeSOCKS5(ctx, strings.TrimPrefix(address, "socks5://"))
	} else {
		err = v.probeHTTP(ctx, address)
	}
	if err != nil {
		l := logger.WithComponent("ProxyPool/Validator")
		l.Debug().
			Str("proxy", address).
			Str("kind", Classify(err)).
			Err(err).
			Msg("Probe failed.")
	}
	return err
}

// probeHTTP issues one GET to the check URL with the candidate configured as
// the HTTP proxy. The transport is built per call: a shared Transport cannot
// switch proxies per request.
func (v *Validator) probeHTTP(ctx context.Context, address string) error {
	proxyURL, err := url.Parse("http://" + address)
	if err != nil {
		return fmt.Errorf("invalid proxy address %q: %w", address, err)
	}

	dialer := &net.Dialer{
		Timeout:   v.timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy: http.ProxyURL(proxyURL),
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		IdleConnTimeout:     v.timeout,
		TLSHandshakeTimeout: v.timeout / 2,
		DisableKeepAlives:   true,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   v.timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.checkURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return nil
}

// probeSOCKS5 validates a candidate by completing a SOCKS5 handshake and
// dialing the check URL's host through it.
func (v *Validator) probeSOCKS5(ctx context.Context, address string) error {
	dialer, err := proxy.SOCKS5("tcp", address, nil, &net.Dialer{Timeout: v.timeout})
	if err != nil {
		return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	target, err := url.Parse(v.checkURL)
	if err != nil {
		return err
	}
	host := target.Host
	if target.Port() == "" {
		host = net.JoinHostPort(target.Hostname(), "80")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	conn, err := dialer.(proxy.ContextDialer).DialContext(ctx, "tcp", host)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Classify 将探测错误归类，仅用于日志统计。
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrBadStatus) {
		return KindBadStatus
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return KindTimeout
	}
	return KindConnect
}
