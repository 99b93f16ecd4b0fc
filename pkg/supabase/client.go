// Package supabase talks to the Supabase PostgREST surface. The relational
// store itself is reached over the Postgres wire protocol; this client covers
// the REST-only operations: health probing and row upserts through the API
// gateway.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fraudsight/fraudsight/pkg/utils"
	"go.uber.org/zap"
)

type Config struct {
	URL string
	Key string
}

type Client struct {
	logger *zap.Logger
	cnf    Config
	http   *http.Client
}

func NewClient(logger *zap.Logger, cnf Config) *Client {
	return &Client{
		logger: logger,
		cnf:    cnf,
		http:   utils.NewHTTPClient(),
	}
}

// Enabled reports whether a project URL is configured. All methods are no-ops
// when it is not, so callers can wire the client unconditionally.
func (c *Client) Enabled() bool {
	return c.cnf.URL != ""
}

// Health probes the PostgREST root endpoint.
func (c *Client) Health(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	resp, err := c.do(ctx, http.MethodGet, "/rest/v1/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("supabase health check returned %d", resp.StatusCode)
	}
	return nil
}

// UpsertRows merges rows into the named table, resolving conflicts by primary
// key so repeated seeding stays idempotent.
func (c *Client) UpsertRows(ctx context.Context, table string, rows any) error {
	if !c.Enabled() {
		return nil
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows for %s: %w", table, err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/rest/v1/"+table, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("supabase upsert into %s returned %d: %s", table, resp.StatusCode, detail)
	}
	c.logger.Debug("supabase rows upserted", zap.String("table", table))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cnf.URL, "/")+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.cnf.Key)
	req.Header.Set("Authorization", "Bearer "+c.cnf.Key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "resolution=merge-duplicates")
	}
	return c.http.Do(req)
}
