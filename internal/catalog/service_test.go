package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michelgermain/netsuite-mcp/internal/history"
	"github.com/michelgermain/netsuite-mcp/internal/netsuite"
	q "github.com/michelgermain/netsuite-mcp/internal/query"
	"github.com/michelgermain/netsuite-mcp/internal/testutil"
)

// fakeBackend serves canned responses and records what it was sent.
type fakeBackend struct {
	pages      []*q.Page
	search     *netsuite.SearchData
	searchErr  error
	statements []string
	requests   []*q.SearchRequest
}

func (f *fakeBackend) RunSuiteQL(_ context.Context, statement string, _ int) (*q.Page, error) {
	f.statements = append(f.statements, statement)
	i := len(f.statements) - 1
	if i >= len(f.pages) {
		return &q.Page{}, nil
	}
	return f.pages[i], nil
}

func (f *fakeBackend) Search(_ context.Context, req *q.SearchRequest) (*netsuite.SearchData, error) {
	f.requests = append(f.requests, req)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.search, nil
}

func newTestService(t *testing.T, backend Backend, db *history.DB) *Service {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	norm := &q.Normalizer{Logger: logger}
	pager := &q.Pager{Delay: time.Millisecond, MaxPages: 5, Normalizer: norm, Logger: logger}
	return NewService(backend, Options{Pager: pager, Normalizer: norm, History: db, Logger: logger})
}

// chart is a small account tree: 1000 > 1100 > 1110, plus 2000.
func chart() *q.Page {
	return &q.Page{Items: []map[string]any{
		{"id": "10", "accountnumber": "1000", "name": "Assets", "parentid": nil, "summary": "T"},
		{"id": "11", "accountnumber": "1100", "name": "Current Assets", "parentid": "10", "summary": "T"},
		{"id": "12", "accountnumber": "1110", "name": "Checking", "parentid": "11", "summary": "F"},
		{"id": "20", "accountnumber": "2000", "name": "Checking Reserve", "parentid": nil, "summary": "F"},
	}}
}

func TestRun_SuiteQLResolvesParents(t *testing.T) {
	backend := &fakeBackend{pages: []*q.Page{chart()}}
	svc := newTestService(t, backend, nil)

	out, err := svc.Run(context.Background(), Accounts, q.Params{})
	require.NoError(t, err)
	require.Len(t, backend.statements, 1)
	assert.Contains(t, backend.statements[0], "FROM account a ORDER BY a.acctnumber ASC")

	require.Len(t, out.Items, 4)
	checking := out.Items[2]
	assert.Equal(t, "1110", checking["AccountNumber"])
	assert.Equal(t, "1100", checking["ParentNumber"])
	assert.Equal(t, false, checking["Summary"])
	assert.NotContains(t, checking, "ParentId")
	assert.NotContains(t, out.Items[0], "ParentNumber")
}

func TestRun_CountOnly(t *testing.T) {
	backend := &fakeBackend{pages: []*q.Page{{Items: []map[string]any{{"count": float64(42)}}}}}
	svc := newTestService(t, backend, nil)

	out, err := svc.Run(context.Background(), Customers, q.Params{CountOnly: true, Limit: 5})
	require.NoError(t, err)
	assert.Contains(t, backend.statements[0], "SELECT COUNT(*) AS Count FROM customer c")

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Count":42}`, string(b))
}

func TestRun_LimitExceededBeforeBackend(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(t, backend, nil)

	_, err := svc.Run(context.Background(), Invoices, q.Params{Limit: 20000})
	require.ErrorIs(t, err, q.ErrLimitExceeded)
	assert.Empty(t, backend.requests)

	_, err = svc.Run(context.Background(), Vendors, q.Params{Limit: 20000})
	require.ErrorIs(t, err, q.ErrLimitExceeded)
	assert.Empty(t, backend.statements)
}

func TestRun_SearchAppliesOffset(t *testing.T) {
	backend := &fakeBackend{search: &netsuite.SearchData{Count: 3, Items: [][]any{
		{"1", "INV1", "1/2/2024"},
		{"2", "INV2", "1/3/2024"},
		{"3", "INV3", "1/4/2024"},
	}}}
	svc := newTestService(t, backend, nil)

	out, err := svc.Run(context.Background(), Invoices, q.Params{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "invoice", req.Type)
	assert.Equal(t, 3, req.MaxResults)
	assert.Equal(t, []any{"mainline", "is", "T"}, req.Filters[0])

	require.Len(t, out.Items, 2)
	assert.Equal(t, q.Record{"Id": "2", "TranId": "INV2", "TranDate": "2024-01-03"}, out.Items[0])
}

func TestRun_SearchOffsetRespectsMaxLimit(t *testing.T) {
	backend := &fakeBackend{search: &netsuite.SearchData{}}
	svc := newTestService(t, backend, nil)

	_, err := svc.Run(context.Background(), Invoices, q.Params{Limit: q.MaxLimit, Offset: 1})
	require.ErrorIs(t, err, q.ErrLimitExceeded)
	assert.Empty(t, backend.requests)

	_, err = svc.Run(context.Background(), Invoices, q.Params{Limit: q.MaxLimit - 5, Offset: 5})
	require.NoError(t, err)
	require.Len(t, backend.requests, 1)
	assert.Equal(t, q.MaxLimit, backend.requests[0].MaxResults)
}

func TestRun_SearchCountOnly(t *testing.T) {
	backend := &fakeBackend{search: &netsuite.SearchData{Count: 311}}
	svc := newTestService(t, backend, nil)

	out, err := svc.Run(context.Background(), JournalEntries, q.Params{CountOnly: true})
	require.NoError(t, err)
	assert.True(t, backend.requests[0].CountOnly)
	assert.Equal(t, 1, backend.requests[0].MaxResults)
	require.NotNil(t, out.Count)
	assert.Equal(t, 311, *out.Count)
}

func TestOutput_MarshalEmptyItems(t *testing.T) {
	b, err := json.Marshal(&Output{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(b))
}

func TestRun_RecordsHistory(t *testing.T) {
	db, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	backend := &fakeBackend{
		pages:     []*q.Page{chart()},
		searchErr: q.Errorf(q.APIErr, q.ErrBackend, "search failed"),
	}
	svc := newTestService(t, backend, db)

	_, err = svc.Run(context.Background(), Accounts, q.Params{})
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), SalesOrders, q.Params{})
	require.Error(t, err)

	entries, err := svc.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "search_sales_orders", entries[0].Tool)
	assert.Equal(t, "search", entries[0].Backend)
	assert.Equal(t, "search failed", entries[0].Error)
	assert.Equal(t, "list_accounts", entries[1].Tool)
	assert.Equal(t, 4, entries[1].Rows)
}

func TestRecent_WithoutHistory(t *testing.T) {
	svc := newTestService(t, &fakeBackend{}, nil)
	_, err := svc.Recent(context.Background(), "", 10)
	assert.ErrorIs(t, err, q.ErrMissingConfig)
}

func TestAccountBalance_RollsUpDescendants(t *testing.T) {
	backend := &fakeBackend{
		pages: []*q.Page{chart()},
		search: &netsuite.SearchData{Items: [][]any{
			{"11", "100.10"},
			{"12", "-0.05"},
		}},
	}
	svc := newTestService(t, backend, nil)

	filters := []q.Filter{{Column: "TranDate", Operator: q.OpLessEqual, Value: "2024-12-31"}}
	bal, err := svc.AccountBalance(context.Background(), "1100", filters)
	require.NoError(t, err)
	assert.Equal(t, "1100", bal.AccountNumber)
	assert.Equal(t, []string{"11", "12"}, bal.Accounts)
	assert.InDelta(t, 100.05, bal.Balance, 1e-9)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "transaction", req.Type)
	assert.Equal(t, []any{"account", "anyof", "11", "12"}, req.Filters[0])
	assert.Equal(t, "AND", req.Filters[1])
	assert.Equal(t, []any{"posting", "is", "T"}, req.Filters[2])
	assert.Contains(t, req.Filters, []any{"trandate", "onorbefore", "12/31/2024"})
}

func TestAccountBalance_ByName(t *testing.T) {
	backend := &fakeBackend{pages: []*q.Page{chart()}, search: &netsuite.SearchData{}}
	svc := newTestService(t, backend, nil)

	bal, err := svc.AccountBalance(context.Background(), "assets", nil)
	require.NoError(t, err)
	assert.Equal(t, "1000", bal.AccountNumber)
	assert.Equal(t, []string{"10", "11", "12"}, bal.Accounts)
	assert.Zero(t, bal.Balance)
}

func TestAccountBalance_UnnumberedAccount(t *testing.T) {
	page := chart()
	page.Items = append(page.Items,
		map[string]any{"id": "30", "name": "Services Revenue", "parentid": nil, "summary": "T"},
		map[string]any{"id": "31", "name": "Consulting", "parentid": "30", "summary": "F"},
		map[string]any{"id": "32", "name": "Licensing", "parentid": "30", "summary": "F"},
	)
	backend := &fakeBackend{
		pages:  []*q.Page{page},
		search: &netsuite.SearchData{Items: [][]any{{"31", "250"}, {"32", "50.5"}}},
	}
	svc := newTestService(t, backend, nil)

	bal, err := svc.AccountBalance(context.Background(), "Services Revenue", nil)
	require.NoError(t, err)
	assert.Empty(t, bal.AccountNumber)
	assert.Equal(t, []string{"30", "31", "32"}, bal.Accounts)
	assert.InDelta(t, 300.5, bal.Balance, 1e-9)
	assert.Equal(t, []any{"account", "anyof", "30", "31", "32"}, backend.requests[0].Filters[0])
}

func TestAccountBalance_Ambiguous(t *testing.T) {
	backend := &fakeBackend{pages: []*q.Page{chart()}}
	svc := newTestService(t, backend, nil)

	_, err := svc.AccountBalance(context.Background(), "check", nil)
	require.Error(t, err)
	assert.Equal(t, q.UserErr, q.KindOf(err))
	assert.Contains(t, err.Error(), "multiple accounts match")
	assert.Empty(t, backend.requests)
}

func TestAccountBalance_Unknown(t *testing.T) {
	backend := &fakeBackend{pages: []*q.Page{chart()}}
	svc := newTestService(t, backend, nil)

	_, err := svc.AccountBalance(context.Background(), "9999", nil)
	require.ErrorIs(t, err, q.ErrInvalidValue)
	assert.Equal(t, q.UserErr, q.KindOf(err))
}

func TestEntities_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range Entities() {
		assert.False(t, seen[e.Name], "duplicate tool %s", e.Name)
		seen[e.Name] = true
		assert.NotEmpty(t, e.Description, e.Name)
		assert.NotNil(t, e.Schema, e.Name)
	}
	e, ok := Lookup("search_invoices")
	require.True(t, ok)
	assert.Equal(t, Search, e.Kind)
}
