package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michelgermain/netsuite-mcp/internal/catalog"
	"github.com/michelgermain/netsuite-mcp/internal/query"
)

// RegisterTools adds every catalog entity plus the helper tools to the server.
func RegisterTools(s *server.MCPServer, svc *catalog.Service) {
	for _, e := range catalog.Entities() {
		registerEntity(s, svc, e)
	}
	registerAccountBalance(s, svc)
	registerRecentQueries(s, svc)
}

func operatorNames() []string {
	ops := make([]string, len(query.Operators))
	for i, op := range query.Operators {
		ops[i] = string(op)
	}
	return ops
}

func filterItems(columns []string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Column":   map[string]any{"type": "string", "enum": columns},
			"Operator": map[string]any{"type": "string", "enum": operatorNames()},
			"Value":    map[string]any{"type": "string", "description": "Comparison value. Dates as YYYY-MM-DD, booleans as true/false."},
		},
		"required": []string{"Column", "Operator", "Value"},
	}
}

// paramOptions describes the generic query envelope for one schema.
func paramOptions(e catalog.Entity) []mcp.ToolOption {
	columns := e.Schema.Names()
	var sortable []string
	for _, c := range e.Schema.Projected() {
		sortable = append(sortable, c.Name)
	}
	return []mcp.ToolOption{
		mcp.WithDescription(e.Description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("CountOnly",
			mcp.Description("Return only the number of matching records as {\"Count\": n}"),
		),
		mcp.WithObject("OrderBy",
			mcp.Description("Sort column and direction. Unknown columns fall back to the default order."),
			mcp.Properties(map[string]any{
				"Column":    map[string]any{"type": "string", "enum": sortable},
				"SortOrder": map[string]any{"type": "string", "enum": []string{"ASC", "DESC"}},
			}),
		),
		mcp.WithArray("Filters",
			mcp.Description("Conditions combined with AND"),
			mcp.Items(filterItems(columns)),
		),
		mcp.WithNumber("Limit",
			mcp.Description(fmt.Sprintf("Maximum number of records to return (at most %d)", query.MaxLimit)),
		),
		mcp.WithNumber("Offset",
			mcp.Description("Number of records to skip"),
		),
	}
}

func registerEntity(s *server.MCPServer, svc *catalog.Service, e catalog.Entity) {
	tool := mcp.NewTool(e.Name, paramOptions(e)...)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params query.Params
		if err := request.BindArguments(&params); err != nil {
			return errorResult(query.Errorf(query.UserErr, query.ErrInvalidValue, "invalid arguments: %v", err)), nil
		}
		out, err := svc.Run(ctx, e, params)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(out)
	})
}

type balanceArgs struct {
	Account string         `json:"Account"`
	Filters []query.Filter `json:"Filters"`
}

func registerAccountBalance(s *server.MCPServer, svc *catalog.Service) {
	tool := mcp.NewTool("get_account_balance",
		mcp.WithDescription("Get the posted balance of an account including all of its sub-accounts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("Account",
			mcp.Required(),
			mcp.Description("Account number, or account name (case-insensitive, partial match supported)"),
		),
		mcp.WithArray("Filters",
			mcp.Description("Conditions on the summed transactions, e.g. TranDate <= 2024-12-31"),
			mcp.Items(filterItems(catalog.BalanceSchema().Names())),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args balanceArgs
		if err := request.BindArguments(&args); err != nil {
			return errorResult(query.Errorf(query.UserErr, query.ErrInvalidValue, "invalid arguments: %v", err)), nil
		}
		bal, err := svc.AccountBalance(ctx, args.Account, args.Filters)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(bal)
	})
}

type historyItem struct {
	Tool       string `json:"Tool"`
	Backend    string `json:"Backend"`
	Statement  string `json:"Statement"`
	Rows       int    `json:"Rows"`
	DurationMS int64  `json:"DurationMs"`
	Error      string `json:"Error,omitempty"`
	CreatedAt  string `json:"CreatedAt"`
}

func registerRecentQueries(s *server.MCPServer, svc *catalog.Service) {
	tool := mcp.NewTool("recent_queries",
		mcp.WithDescription("List recently executed backend queries (compiled SuiteQL statements and search requests), newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("tool",
			mcp.Description("Only show queries issued by this tool"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return (default: 20)"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := mcp.ParseString(request, "tool", "")
		limit := mcp.ParseInt(request, "limit", 20)
		entries, err := svc.Recent(ctx, name, limit)
		if err != nil {
			return errorResult(err), nil
		}
		items := make([]historyItem, 0, len(entries))
		for _, e := range entries {
			items = append(items, historyItem{
				Tool:       e.Tool,
				Backend:    e.Backend,
				Statement:  e.Statement,
				Rows:       e.Rows,
				DurationMS: e.Duration.Milliseconds(),
				Error:      e.Error,
				CreatedAt:  e.CreatedAt.Format(time.RFC3339),
			})
		}
		return jsonResult(map[string]any{"items": items})
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

type errorPayload struct {
	IsError   bool       `json:"isError"`
	Kind      query.Kind `json:"kind"`
	Message   string     `json:"message"`
	Timestamp string     `json:"timestamp"`
}

// errorResult reports err to the caller as a tool error carrying its kind.
func errorResult(err error) *mcp.CallToolResult {
	b, _ := json.Marshal(errorPayload{
		IsError:   true,
		Kind:      query.KindOf(err),
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return mcp.NewToolResultError(string(b))
}
