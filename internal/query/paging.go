package query

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	// DefaultPageDelay is the pause between consecutive page requests.
	DefaultPageDelay = 100 * time.Millisecond
	// DefaultMaxPages bounds the number of page requests per query.
	DefaultMaxPages = 1000
)

// Page is one response of the SuiteQL endpoint.
type Page struct {
	TotalResults int              `json:"totalResults"`
	Count        int              `json:"count"`
	HasMore      bool             `json:"hasMore"`
	Offset       int              `json:"offset"`
	Items        []map[string]any `json:"items"`
}

// PageExecutor runs a SuiteQL statement starting at offset.
type PageExecutor interface {
	RunSuiteQL(ctx context.Context, statement string, offset int) (*Page, error)
}

// Fetch describes one paged query.
type Fetch struct {
	Statement string
	Schema    *Schema
	CountOnly bool
	// Offset seeds the first request.
	Offset int
}

// Result is the outcome of a paged fetch. Count is set in count mode only.
type Result struct {
	Count *int
	Items []Record
}

// Pager drives a PageExecutor until the backend reports no more data.
// Requests are strictly sequential because each offset depends on the
// previous response.
type Pager struct {
	Delay      time.Duration
	MaxPages   int
	Normalizer *Normalizer
	Logger     *slog.Logger
}

// NewPager returns a Pager with the default delay and page cap.
func NewPager(n *Normalizer, logger *slog.Logger) *Pager {
	return &Pager{Delay: DefaultPageDelay, MaxPages: DefaultMaxPages, Normalizer: n, Logger: logger}
}

// Run fetches every page of f.Statement, normalizing rows against f.Schema.
func (p *Pager) Run(ctx context.Context, exec PageExecutor, f Fetch) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	norm := p.Normalizer
	if norm == nil {
		norm = &Normalizer{Logger: logger}
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	res := &Result{}
	offset := f.Offset
	for page := 1; ; page++ {
		resp, err := exec.RunSuiteQL(ctx, f.Statement, offset)
		if err != nil {
			return nil, err
		}

		if f.CountOnly {
			n := pageCount(resp)
			res.Count = &n
			return res, nil
		}

		res.Items = append(res.Items, norm.Objects(f.Schema, resp.Items)...)
		logger.Debug("fetched page", "page", page, "offset", offset, "rows", len(resp.Items), "has_more", resp.HasMore)

		if !resp.HasMore {
			return res, nil
		}
		if len(resp.Items) == 0 {
			return nil, Errorf(APIErr, ErrBackend, "backend reported more rows at offset %d but returned none", offset)
		}
		if page >= maxPages {
			return nil, Errorf(AIErr, ErrPageLimit, "stopped after %d pages at offset %d; narrow the query with filters", page, offset)
		}
		offset += len(resp.Items)

		if err := sleep(ctx, p.Delay); err != nil {
			return nil, err
		}
	}
}

// pageCount reads the aggregate from a COUNT(*) AS Count row, falling back
// to the reported total.
func pageCount(resp *Page) int {
	if len(resp.Items) > 0 {
		for k, v := range resp.Items[0] {
			if strings.EqualFold(k, "count") {
				if n, err := cast.ToIntE(v); err == nil {
					return n
				}
				if f, err := cast.ToFloat64E(v); err == nil {
					return int(f)
				}
			}
		}
	}
	return resp.TotalResults
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
