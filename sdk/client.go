package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/utils"
)

const defaultRequestTimeout = 10 * time.Second

// Client talks to a lattice registry over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a registry client. baseURL is the registry root, for
// example "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Register announces a service record. The returned id is the one the
// registry stored, which may differ from the submitted one only in that
// the registry echoes it back as the handle for later calls.
func (c *Client) Register(ctx context.Context, rec *lattice.ServiceRecord) (string, error) {
	var resp struct {
		ServiceID string `json:"service_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/register", rec, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.ServiceID, nil
}

func (c *Client) Heartbeat(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/heartbeat/"+id, nil, http.StatusOK, nil)
}

func (c *Client) Unregister(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/unregister/"+id, nil, http.StatusNoContent, nil)
}

// FindByCapability resolves a capability to the registry's best active
// provider. Returns lattice.ErrNotFound when nothing provides it.
func (c *Client) FindByCapability(ctx context.Context, capability string) (*lattice.ServiceRecord, error) {
	var rec lattice.ServiceRecord
	if err := c.do(ctx, http.MethodGet, "/api/capabilities/"+capability, nil, http.StatusOK, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Discover ranks services against a capability query.
func (c *Client) Discover(ctx context.Context, required, optional []string) ([]*lattice.Match, error) {
	req := struct {
		CapabilitiesRequired []string `json:"capabilities_required"`
		CapabilitiesOptional []string `json:"capabilities_optional"`
	}{required, optional}

	var resp struct {
		Matches []*lattice.Match `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/discover", req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: registry request %s %s: %v", lattice.ErrUnreachable, method, path, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != wantStatus {
		return statusError(resp, method, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response for %s %s: %w", method, path, err)
		}
	}
	return nil
}

func statusError(resp *http.Response, method, path string) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", lattice.ErrNotFound, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", lattice.ErrValidation, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: registry %s %s: %s", lattice.ErrUnreachable, method, path, msg)
	default:
		return fmt.Errorf("registry %s %s: %s", method, path, msg)
	}
}
