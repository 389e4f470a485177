package lattice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// HealthPath is the well-known health endpoint every HTTP-mode service
// exposes. The monitor probes it; the SDK host serves it.
const HealthPath = "/_module/health"

// ProbeHealth issues one bounded health probe against a service location.
// Any 2xx response within the timeout counts as healthy; everything else,
// including transport errors and malformed locations, is a failed check.
func ProbeHealth(ctx context.Context, location string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext(ctx, network, addr)
			},
			TLSHandshakeTimeout: timeout,
			DisableKeepAlives:   true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	url := strings.TrimSuffix(location, "/") + HealthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}
	return nil
}
