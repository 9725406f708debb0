// Package remote talks to a JSON-over-HTTP realtime database: parameters are
// read from <base>/<namespace>/<key>.json and the telemetry ring lives under
// <base>/log/.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"solar_collector/internal/config"
	"solar_collector/internal/models"
)

const stdTimeout = 5 * time.Second

// LogRoot is the path of the telemetry ring.
const LogRoot = "log"

// Client implements config.Source and telemetry.Backend.
type Client struct {
	baseURL string
	auth    string
	http    *http.Client
}

// New returns a client for baseURL. auth, when set, is passed as the auth
// query parameter on every request.
func New(baseURL, auth string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http:    &http.Client{Timeout: stdTimeout},
	}
}

func (c *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u := c.baseURL + "/" + strings.Join(escaped, "/") + ".json"
	if c.auth != "" {
		u += "?auth=" + url.QueryEscape(c.auth)
	}
	return u
}

// Get returns the JSON text stored at namespace/key. A JSON null means the
// key does not exist.
func (c *Client) Get(ctx context.Context, namespace, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(namespace, key), nil)
	if err != nil {
		return "", fmt.Errorf("create get request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	text := strings.TrimSpace(string(body))
	if text == "" || text == "null" {
		return "", config.ErrNotFound
	}
	return text, nil
}

// logRecord is the stored shape of a telemetry entry. Channel readings are
// keyed by channel number and carry the raw ADC mean; converted temperatures
// are null on fault cycles.
type logRecord struct {
	Time       int64    `json:"time"`
	Storage    float64  `json:"0"`
	Collector  float64  `json:"1"`
	StorageC   *float64 `json:"storage_c"`
	CollectorC *float64 `json:"collector_c"`
	Active     bool     `json:"active"`
}

// WriteEntry replaces log/<slot>.
func (c *Client) WriteEntry(ctx context.Context, slot int, e models.LogEntry) error {
	rec := logRecord{
		Time:      e.Time.Unix(),
		Storage:   e.StorageRaw,
		Collector: e.CollectorRaw,
		Active:    e.Active,
	}
	rec.StorageC, rec.CollectorC = e.Temperatures()
	return c.put(ctx, rec, LogRoot, strconv.Itoa(slot))
}

// WriteScalar replaces log/<name>/<slot>.
func (c *Client) WriteScalar(ctx context.Context, name string, slot int, value float64) error {
	return c.put(ctx, value, LogRoot, name, strconv.Itoa(slot))
}

func (c *Client) put(ctx context.Context, v any, parts ...string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(parts...), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create put request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := c.do(req); err != nil {
		return fmt.Errorf("put %s: %w", strings.Join(parts, "/"), err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
