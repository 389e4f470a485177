package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/utils"
)

// InvokePath is the standard invocation endpoint every HTTP module serves.
const InvokePath = "/_module/invoke"

const defaultInvokeTimeout = 30 * time.Second

// Proxy executes capability invocations against one target, local or remote.
type Proxy interface {
	Invoke(ctx context.Context, capability string, params map[string]any) (map[string]any, error)
}

// embeddedProxy dispatches straight into an in-process module.
type embeddedProxy struct {
	module Module
}

func (p *embeddedProxy) Invoke(ctx context.Context, capability string, params map[string]any) (map[string]any, error) {
	return p.module.Invoke(ctx, capability, params)
}

// httpProxy invokes a remote module over its standard endpoint.
type httpProxy struct {
	location string
	http     *http.Client
}

func newHTTPProxy(location string) *httpProxy {
	return &httpProxy{
		location: strings.TrimSuffix(location, "/"),
		http:     &http.Client{Timeout: defaultInvokeTimeout},
	}
}

type invokeRequest struct {
	Capability string         `json:"capability"`
	Params     map[string]any `json:"params"`
}

func (p *httpProxy) Invoke(ctx context.Context, capability string, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(invokeRequest{Capability: capability, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal invocation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.location+InvokePath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build invocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		// Transport failures are retryable: the resolver may know a
		// fresher provider.
		return nil, fmt.Errorf("%w: invoke %q at %s: %v", lattice.ErrUnreachable, capability, p.location, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: invoke %q at %s: %s", lattice.ErrUnreachable, capability, p.location, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return nil, fmt.Errorf("invoke %q at %s: %s", capability, p.location, body.Error)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode invocation result: %w", err)
	}
	return result, nil
}
