package query

import (
	"slices"
	"strings"
)

// Expression is a NetSuite filter expression: triples such as
// []any{"mainline", "is", "T"} joined by "AND"/"OR" tokens, possibly nested.
type Expression []any

// Setting is a saved-search setting passed through to the backend.
type Setting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SearchDefinition is the per-tool saved-search configuration.
type SearchDefinition struct {
	Type        string
	Inbuilt     Expression
	DefaultSort Order
	Settings    []Setting
}

// SearchColumn is one projected column of a search request.
type SearchColumn struct {
	Name    string `json:"name"`
	Join    string `json:"join,omitempty"`
	Summary string `json:"summary,omitempty"`
	Formula string `json:"formula,omitempty"`
	Text    bool   `json:"text,omitempty"`
	Sort    string `json:"sort,omitempty"`
}

// SearchRequest is the descriptor sent to the search RESTlet.
type SearchRequest struct {
	Type       string         `json:"type"`
	Filters    Expression     `json:"filters"`
	Columns    []SearchColumn `json:"columns"`
	CountOnly  bool           `json:"countOnly"`
	MaxResults int            `json:"maxResults"`
	Settings   []Setting      `json:"settings,omitempty"`
}

// Search compiles params against schema into a search descriptor.
func (c *Compiler) Search(def SearchDefinition, schema *Schema, params Params) (*SearchRequest, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	filters, err := c.searchFilters(schema, params.Filters)
	if err != nil {
		return nil, err
	}

	req := &SearchRequest{
		Type:       def.Type,
		Filters:    joinExpressions(def.Inbuilt, filters),
		Columns:    searchColumns(schema, params, def.DefaultSort),
		CountOnly:  params.CountOnly,
		MaxResults: params.Limit,
		Settings:   slices.Clone(def.Settings),
	}
	if params.CountOnly {
		req.MaxResults = 1
	}
	return req, nil
}

func searchColumns(schema *Schema, params Params, def Order) []SearchColumn {
	var sortCol string
	var sortDir Direction
	if !params.CountOnly {
		if col, dir, ok := resolveOrder(schema, params.OrderBy, def); ok {
			sortCol, sortDir = col.Name, dir
		}
	}

	cols := schema.Projected()
	out := make([]SearchColumn, 0, len(cols))
	for _, col := range cols {
		sc := SearchColumn{
			Name:    col.Field,
			Join:    col.Join,
			Summary: col.Summary,
			Text:    col.Text,
		}
		if col.Formula != "" {
			sc.Name, sc.Formula = splitFormula(col.Formula)
		}
		if col.Name == sortCol {
			sc.Sort = string(sortDir)
		}
		out = append(out, sc)
	}
	return out
}

// splitFormula splits "formulanumeric: {amount} * 2" into the result field
// name and the formula body.
func splitFormula(formula string) (name, body string) {
	name, body, found := strings.Cut(formula, ":")
	if !found {
		return strings.TrimSpace(formula), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(body)
}

func (c *Compiler) searchFilters(schema *Schema, filters []Filter) (Expression, error) {
	var expr Expression
	for _, f := range filters {
		col, ok := schema.Lookup(f.Column)
		if !ok {
			c.logger.Warn("skipping filter on unknown column", "column", f.Column, "backend", BackendSearch)
			continue
		}
		op, err := Translate(BackendSearch, col.Type, f.Operator)
		if err != nil {
			return nil, err
		}
		value, err := searchValue(col, f)
		if err != nil {
			return nil, err
		}
		if len(expr) > 0 {
			expr = append(expr, "AND")
		}
		expr = append(expr, []any{searchFieldRef(col), op, value})
	}
	return expr, nil
}

func searchFieldRef(col Column) string {
	switch {
	case col.FilterFormula != "":
		return col.FilterFormula
	case col.Formula != "":
		return col.Formula
	case col.Join != "":
		return col.Join + "." + col.Field
	}
	return col.Field
}

func searchValue(col Column, f Filter) (string, error) {
	switch col.Type {
	case Date:
		t, err := parseDateValue(f.Value, col)
		if err != nil {
			return "", err
		}
		layout, err := GoLayout(col.dateFormat())
		if err != nil {
			return "", Errorf(AIErr, ErrInvalidValue, "%s: %v", col.Name, err)
		}
		return t.Format(layout), nil
	case Boolean:
		v, err := parseBoolValue(col, f.Value)
		if err != nil {
			return "", err
		}
		// The boolean table only has "is"; negation moves into the value.
		if f.Operator.negates() {
			if v == "T" {
				v = "F"
			} else {
				v = "T"
			}
		}
		return v, nil
	}
	return f.Value, nil
}

// joinExpressions prepends the inbuilt expression, adding "AND" only when
// both sides are non-empty.
func joinExpressions(inbuilt, generic Expression) Expression {
	switch {
	case len(inbuilt) == 0 && len(generic) == 0:
		return Expression{}
	case len(inbuilt) == 0:
		return generic
	case len(generic) == 0:
		return slices.Clone(inbuilt)
	}
	out := make(Expression, 0, len(inbuilt)+1+len(generic))
	out = append(out, inbuilt...)
	out = append(out, "AND")
	return append(out, generic...)
}
