// Package netsuite talks to the NetSuite SuiteQL REST endpoint and to the
// search RESTlet that executes saved-search descriptors.
package netsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/michelgermain/netsuite-mcp/internal/query"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultPageSize = 1000
	maxErrorBody    = 2048
)

// Config holds the endpoint addresses and credentials. Missing values are
// reported when a call needs them, not at construction.
type Config struct {
	AccountID  string
	SuiteQLURL string
	RESTletURL string
	Token      string
	Timeout    time.Duration
	PageSize   int
	MaxRetries uint64
	RetryBase  time.Duration
}

// suiteQLURL returns the configured endpoint or derives it from the account.
func (c Config) suiteQLURL() string {
	if c.SuiteQLURL != "" {
		return c.SuiteQLURL
	}
	if c.AccountID == "" {
		return ""
	}
	host := strings.ReplaceAll(strings.ToLower(c.AccountID), "_", "-")
	return "https://" + host + ".suitetalk.api.netsuite.com/services/rest/query/v1/suiteql"
}

// Client executes compiled queries over HTTP.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageSize <= 0 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) require(name, value string) error {
	if value == "" {
		return query.Errorf(query.AIErr, query.ErrMissingConfig, "%s is not configured", name)
	}
	return nil
}

// RunSuiteQL executes statement starting at offset and returns one page.
func (c *Client) RunSuiteQL(ctx context.Context, statement string, offset int) (*query.Page, error) {
	endpoint := c.cfg.suiteQLURL()
	if err := c.require("SuiteQL URL (or account id)", endpoint); err != nil {
		return nil, err
	}
	if err := c.require("bearer token", c.cfg.Token); err != nil {
		return nil, err
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, query.Errorf(query.AIErr, query.ErrMissingConfig, "invalid SuiteQL URL %q: %v", endpoint, err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	body, err := json.Marshal(map[string]string{"q": statement})
	if err != nil {
		return nil, fmt.Errorf("encode suiteql request: %w", err)
	}

	var page query.Page
	if err := c.post(ctx, u.String(), body, map[string]string{"Prefer": "transient"}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchData is the payload of a successful search response.
type SearchData struct {
	Count int     `json:"count"`
	Items [][]any `json:"items"`
}

type searchResponse struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error,omitempty"`
	Data    *SearchData     `json:"data,omitempty"`
}

// Search executes a saved-search descriptor through the RESTlet.
func (c *Client) Search(ctx context.Context, req *query.SearchRequest) (*SearchData, error) {
	if err := c.require("search RESTlet URL", c.cfg.RESTletURL); err != nil {
		return nil, err
	}
	if err := c.require("bearer token", c.cfg.Token); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	var resp searchResponse
	if err := c.post(ctx, c.cfg.RESTletURL, body, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		payload := string(resp.Error)
		if payload == "" {
			payload = "no error details"
		}
		return nil, query.Errorf(query.APIErr, query.ErrBackend, "search %s failed: %s", req.Type, payload)
	}
	if resp.Data == nil {
		return &SearchData{}, nil
	}
	return resp.Data, nil
}

// statusError is a non-2xx response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// post sends body and decodes a JSON response into out. Throttling and
// server errors are retried with exponential backoff.
func (c *Client) post(ctx context.Context, endpoint string, body []byte, headers map[string]string, out any) error {
	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.cfg.RetryBase))

	start := time.Now()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("post %s: %w", endpoint, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			serr := &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(excerpt))}
			if retryable(resp.StatusCode) {
				c.logger.Warn("backend request failed, retrying", "status", resp.StatusCode, "endpoint", endpoint)
				return retry.RetryableError(serr)
			}
			return serr
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
	c.logger.Debug("backend request", "endpoint", endpoint, "duration", time.Since(start), "error", err)

	if err == nil {
		return nil
	}
	var serr *statusError
	if errors.As(err, &serr) {
		return &query.Error{Kind: query.APIErr, Message: "backend returned " + serr.Error(), Err: query.ErrBackend}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &query.Error{Kind: query.APIErr, Message: err.Error(), Err: errors.Join(query.ErrBackend, err)}
}
