package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/michelgermain/netsuite-mcp/internal/history"
	"github.com/michelgermain/netsuite-mcp/internal/netsuite"
	q "github.com/michelgermain/netsuite-mcp/internal/query"
)

// Backend executes compiled queries.
type Backend interface {
	q.PageExecutor
	Search(ctx context.Context, req *q.SearchRequest) (*netsuite.SearchData, error)
}

// Options configures a Service. Zero values get defaults.
type Options struct {
	Pager      *q.Pager
	Normalizer *q.Normalizer
	History    *history.DB
	Logger     *slog.Logger
}

// Service runs catalog entities against a backend.
type Service struct {
	backend  Backend
	compiler *q.Compiler
	norm     *q.Normalizer
	pager    *q.Pager
	history  *history.DB
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(backend Backend, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	norm := opts.Normalizer
	if norm == nil {
		norm = &q.Normalizer{Logger: logger}
	}
	pager := opts.Pager
	if pager == nil {
		pager = q.NewPager(norm, logger)
	}
	return &Service{
		backend:  backend,
		compiler: q.NewCompiler(logger),
		norm:     norm,
		pager:    pager,
		history:  opts.History,
		logger:   logger,
	}
}

// Output is a tool result: either a count or a list of records.
type Output struct {
	Count *int
	Items []q.Record
}

func (o *Output) MarshalJSON() ([]byte, error) {
	if o.Count != nil {
		return json.Marshal(map[string]int{"Count": *o.Count})
	}
	items := o.Items
	if items == nil {
		items = []q.Record{}
	}
	return json.Marshal(map[string][]q.Record{"items": items})
}

// Run compiles params for e, executes it and returns normalized output.
func (s *Service) Run(ctx context.Context, e Entity, params q.Params) (*Output, error) {
	start := time.Now()
	var (
		out       *Output
		statement string
		err       error
	)
	switch e.Kind {
	case SuiteQL:
		out, statement, err = s.runSuiteQL(ctx, e, params)
	case Search:
		out, statement, err = s.runSearch(ctx, e, params)
	default:
		err = q.Errorf(q.AIErr, q.ErrBackend, "entity %s has unknown backend %d", e.Name, e.Kind)
	}
	s.record(ctx, e.Name, e.Kind, statement, out, time.Since(start), err)
	return out, err
}

func (s *Service) runSuiteQL(ctx context.Context, e Entity, params q.Params) (*Output, string, error) {
	stmt, err := s.compiler.SuiteQL(e.Statement, e.Schema, params)
	if err != nil {
		return nil, "", err
	}
	s.logger.Debug("compiled suiteql", "tool", e.Name, "statement", stmt)

	res, err := s.pager.Run(ctx, s.backend, q.Fetch{
		Statement: stmt,
		Schema:    e.Schema,
		CountOnly: params.CountOnly,
		Offset:    params.Offset,
	})
	if err != nil {
		return nil, stmt, err
	}
	if res.Count == nil && e.Hierarchy != nil {
		q.ResolveParents(res.Items, *e.Hierarchy)
	}
	return &Output{Count: res.Count, Items: res.Items}, stmt, nil
}

// runSearch executes a saved search. The search endpoint has no offset, so
// the skipped rows are requested and dropped here.
func (s *Service) runSearch(ctx context.Context, e Entity, params q.Params) (*Output, string, error) {
	req, err := s.compiler.Search(e.Search, e.Schema, params)
	if err != nil {
		return nil, "", err
	}
	skip := 0
	if !params.CountOnly && params.Offset > 0 {
		skip = params.Offset
		if req.MaxResults > 0 {
			if req.MaxResults+skip > q.MaxLimit {
				return nil, "", q.Errorf(q.AIErr, q.ErrLimitExceeded, "limit %d with offset %d exceeds the maximum of %d", req.MaxResults, skip, q.MaxLimit)
			}
			req.MaxResults += skip
		}
	}
	statement := encodeRequest(req)
	s.logger.Debug("compiled search", "tool", e.Name, "request", statement)

	data, err := s.backend.Search(ctx, req)
	if err != nil {
		return nil, statement, err
	}
	if params.CountOnly {
		n := data.Count
		return &Output{Count: &n}, statement, nil
	}
	rows := data.Items
	if skip >= len(rows) {
		rows = nil
	} else {
		rows = rows[skip:]
	}
	return &Output{Items: s.norm.Rows(e.Schema, rows)}, statement, nil
}

func encodeRequest(req *q.SearchRequest) string {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Sprintf("%+v", *req)
	}
	return string(b)
}

func (s *Service) record(ctx context.Context, tool string, kind Kind, statement string, out *Output, d time.Duration, runErr error) {
	if s.history == nil || statement == "" {
		return
	}
	e := history.Entry{Tool: tool, Backend: kind.String(), Statement: statement, Duration: d}
	if out != nil {
		if out.Count != nil {
			e.Rows = *out.Count
		} else {
			e.Rows = len(out.Items)
		}
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	// A cancelled request should still be logged.
	if _, err := s.history.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("failed to record query history", "tool", tool, "error", err)
	}
}

// Recent lists previously executed queries, newest first.
func (s *Service) Recent(ctx context.Context, tool string, limit int) ([]history.Entry, error) {
	if s.history == nil {
		return nil, q.Errorf(q.AIErr, q.ErrMissingConfig, "query history is disabled")
	}
	return s.history.Recent(ctx, tool, limit)
}

// Balance is the rolled-up balance of an account and its sub-accounts.
type Balance struct {
	AccountNumber string   `json:"AccountNumber"`
	Name          string   `json:"Name"`
	Balance       float64  `json:"Balance"`
	Accounts      []string `json:"Accounts"`
}

// AccountBalance sums posted amounts of the account identified by number or
// name and every account below it. filters narrow the summed transactions
// and are resolved against BalanceSchema.
func (s *Service) AccountBalance(ctx context.Context, account string, filters []q.Filter) (*Balance, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, q.Errorf(q.UserErr, q.ErrInvalidValue, "account is required")
	}

	// Parent ids are kept so accounts without a number still roll up.
	tree := Accounts
	tree.Hierarchy = nil
	accounts, err := s.Run(ctx, tree, q.Params{})
	if err != nil {
		return nil, err
	}
	target, err := resolveAccount(accounts.Items, account)
	if err != nil {
		return nil, err
	}
	ids := q.DescendantsOf(accounts.Items, accountHierarchy, target, s.logger)

	start := time.Now()
	req, err := s.compiler.Search(balanceDefinition(ids), balanceSchema, q.Params{Filters: filters})
	if err != nil {
		return nil, err
	}
	statement := encodeRequest(req)
	data, err := s.backend.Search(ctx, req)

	var rows []q.Record
	if err == nil {
		rows = s.norm.Rows(balanceSchema, data.Items)
	}
	s.record(ctx, "get_account_balance", Search, statement, &Output{Items: rows}, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, r := range rows {
		total += cast.ToFloat64(r["Amount"])
	}
	return &Balance{
		AccountNumber: cast.ToString(target["AccountNumber"]),
		Name:          cast.ToString(target["Name"]),
		Balance:       math.Round(total*100) / 100,
		Accounts:      ids,
	}, nil
}

// resolveAccount finds a single account by number, then by name. Returns
// an error if no match or ambiguous.
func resolveAccount(accounts []q.Record, ref string) (q.Record, error) {
	for _, a := range accounts {
		if cast.ToString(a["AccountNumber"]) == ref {
			return a, nil
		}
	}

	var matches []q.Record
	needle := strings.ToLower(ref)
	for _, a := range accounts {
		name := cast.ToString(a["Name"])
		if strings.EqualFold(name, ref) {
			return a, nil
		}
		if strings.Contains(strings.ToLower(name), needle) || strings.Contains(strings.ToLower(cast.ToString(a["FullName"])), needle) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return nil, q.Errorf(q.UserErr, q.ErrInvalidValue, "no account found matching '%s'", ref)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, a := range matches {
		names[i] = fmt.Sprintf("  - %s %s", cast.ToString(a["AccountNumber"]), cast.ToString(a["Name"]))
	}
	return nil, q.Errorf(q.UserErr, q.ErrInvalidValue, "multiple accounts match '%s':\n%s\nPlease be more specific.", ref, strings.Join(names, "\n"))
}
