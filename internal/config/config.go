// Package config loads server configuration from defaults, an optional YAML
// file, a .env file, NETSUITE_ environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/michelgermain/netsuite-mcp/internal/netsuite"
	"github.com/michelgermain/netsuite-mcp/internal/query"
)

// Config is the complete server configuration.
type Config struct {
	NetSuite  NetSuiteConfig  `koanf:"netsuite"`
	Paging    PagingConfig    `koanf:"paging"`
	Normalize NormalizeConfig `koanf:"normalize"`
	History   HistoryConfig   `koanf:"history"`
	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
}

// NetSuiteConfig holds backend endpoints and credentials.
type NetSuiteConfig struct {
	AccountID  string        `koanf:"account_id"`
	SuiteQLURL string        `koanf:"suiteql_url"`
	RESTletURL string        `koanf:"restlet_url"`
	Token      string        `koanf:"token"`
	Timeout    time.Duration `koanf:"timeout"`
	PageSize   int           `koanf:"page_size"`
	MaxRetries uint64        `koanf:"max_retries"`
	RetryBase  time.Duration `koanf:"retry_base"`
}

type PagingConfig struct {
	Delay    time.Duration `koanf:"delay"`
	MaxPages int           `koanf:"max_pages"`
}

type NormalizeConfig struct {
	// SkipFalsy drops empty strings, zeros and false values as if absent.
	SkipFalsy bool `koanf:"skip_falsy"`
}

// HistoryConfig locates the query history database. An empty path
// disables history.
type HistoryConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ServerConfig struct {
	Transport string `koanf:"transport"`
	Addr      string `koanf:"addr"`
}

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Defaults for every key. Loaded first so later layers only override.
var defaults = map[string]any{
	"netsuite.timeout":     60 * time.Second,
	"netsuite.page_size":   1000,
	"netsuite.max_retries": 3,
	"netsuite.retry_base":  500 * time.Millisecond,
	"paging.delay":         query.DefaultPageDelay,
	"paging.max_pages":     query.DefaultMaxPages,
	"normalize.skip_falsy": false,
	"history.path":         "",
	"log.level":            "info",
	"log.format":           "text",
	"server.transport":     TransportStdio,
	"server.addr":          "127.0.0.1:8080",
}

// Validate checks values that cannot be corrected at call time. Backend
// credentials are not checked here; tools report them when first needed.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport)
	}
	if c.Server.Transport == TransportHTTP && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required for the http transport")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.NetSuite.PageSize < 1 || c.NetSuite.PageSize > 1000 {
		return fmt.Errorf("netsuite.page_size must be between 1 and 1000, got %d", c.NetSuite.PageSize)
	}
	if c.Paging.MaxPages < 1 {
		return fmt.Errorf("paging.max_pages must be positive, got %d", c.Paging.MaxPages)
	}
	if c.Paging.Delay < 0 {
		return fmt.Errorf("paging.delay must not be negative, got %s", c.Paging.Delay)
	}
	return nil
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Client returns the backend client configuration.
func (c *Config) Client() netsuite.Config {
	n := c.NetSuite
	return netsuite.Config{
		AccountID:  n.AccountID,
		SuiteQLURL: n.SuiteQLURL,
		RESTletURL: n.RESTletURL,
		Token:      n.Token,
		Timeout:    n.Timeout,
		PageSize:   n.PageSize,
		MaxRetries: n.MaxRetries,
		RetryBase:  n.RetryBase,
	}
}
