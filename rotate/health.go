package rotate

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultProbeURL is the endpoint HealthCheck hits through the proxy.
const DefaultProbeURL = "http://httpbin.org/ip"

// HealthCheck probes a proxy with a bounded-timeout request and reports
// reachability. It never returns an error: any transport or HTTP failure
// maps to false.
func HealthCheck(ctx context.Context, proxy Proxy, probeURL string, timeout time.Duration) bool {
	if probeURL == "" {
		probeURL = DefaultProbeURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetProxy(proxy.URL()).
		SetTimeout(timeout)

	resp, err := client.R().SetContext(ctx).Get(probeURL)
	if err != nil {
		slog.Debug("rotate: proxy probe failed", "proxy", proxy.Addr(), "error", err)
		return false
	}
	return resp.StatusCode() == 200
}
