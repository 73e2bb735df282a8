package query

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// SuiteQL statement placeholders.
const (
	PlaceholderColumns = "{{columns}}"
	PlaceholderWhere   = "{{where}}"
	PlaceholderOrder   = "{{order}}"
)

// Statement is the per-tool SuiteQL configuration.
type Statement struct {
	// Template holds the three placeholders, e.g.
	// "SELECT {{columns}} FROM account a {{where}} {{order}}".
	Template string
	// Inbuilt is a SQL condition applied to every query, may be empty.
	Inbuilt     string
	DefaultSort Order
}

// Compiler turns generic parameters into backend requests. It holds no
// per-request state and is safe for concurrent use.
type Compiler struct {
	logger *slog.Logger
}

// NewCompiler returns a Compiler that reports skipped filters to logger.
func NewCompiler(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Compiler{logger: logger}
}

// SuiteQL compiles params against schema into a complete statement.
func (c *Compiler) SuiteQL(stmt Statement, schema *Schema, params Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	where, err := c.suiteQLWhere(stmt.Inbuilt, schema, params.Filters)
	if err != nil {
		return "", err
	}

	out := substitute(stmt.Template, map[string]string{
		PlaceholderColumns: suiteQLColumns(schema, params),
		PlaceholderWhere:   where,
		PlaceholderOrder:   suiteQLOrder(schema, params, stmt.DefaultSort),
	})
	return strings.TrimSpace(out), nil
}

// substitute fills the placeholders. An empty clause also consumes the
// space in front of its placeholder.
func substitute(template string, values map[string]string) string {
	var pairs []string
	for _, ph := range []string{PlaceholderColumns, PlaceholderWhere, PlaceholderOrder} {
		v := values[ph]
		if v == "" {
			pairs = append(pairs, " "+ph, "")
		}
		pairs = append(pairs, ph, v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func suiteQLColumns(schema *Schema, params Params) string {
	if params.CountOnly {
		return "COUNT(*) AS Count"
	}
	cols := schema.Projected()
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, col.SQL+" AS "+col.Name)
	}
	list := strings.Join(parts, ", ")
	if params.Limit > 0 {
		list = "TOP " + strconv.Itoa(params.Limit) + " " + list
	}
	return list
}

func suiteQLOrder(schema *Schema, params Params, def Order) string {
	if params.CountOnly {
		return ""
	}
	col, dir, ok := resolveOrder(schema, params.OrderBy, def)
	if !ok || col.SQL == "" {
		return ""
	}
	return "ORDER BY " + col.SQL + " " + string(dir)
}

func (c *Compiler) suiteQLWhere(inbuilt string, schema *Schema, filters []Filter) (string, error) {
	var conds []string
	for _, f := range filters {
		col, ok := schema.Lookup(f.Column)
		if !ok || col.SQL == "" {
			c.logger.Warn("skipping filter on unknown column", "column", f.Column, "backend", BackendSuiteQL)
			continue
		}
		cond, err := suiteQLCondition(col, f)
		if err != nil {
			return "", err
		}
		conds = append(conds, cond)
	}

	inbuilt = strings.TrimSpace(inbuilt)
	switch {
	case inbuilt == "" && len(conds) == 0:
		return "", nil
	case inbuilt == "":
		return "WHERE " + strings.Join(conds, " AND "), nil
	case len(conds) == 0:
		return "WHERE " + inbuilt, nil
	}
	return "WHERE (" + inbuilt + ") AND " + strings.Join(conds, " AND "), nil
}

func suiteQLCondition(col Column, f Filter) (string, error) {
	op, err := Translate(BackendSuiteQL, col.Type, f.Operator)
	if err != nil {
		return "", err
	}
	value, err := suiteQLValue(col, op, f.Value)
	if err != nil {
		return "", err
	}
	return col.SQL + " " + op + " " + value, nil
}

func suiteQLValue(col Column, op, value string) (string, error) {
	switch col.Type {
	case Date:
		t, err := parseDateValue(value, col)
		if err != nil {
			return "", err
		}
		return "TO_DATE('" + t.Format("02/01/2006") + "', 'DD/MM/YYYY')", nil
	case String:
		if op == "LIKE" || op == "NOT LIKE" {
			escaped := likeEscaper.Replace(value)
			if escaped == value {
				return quote("%" + value + "%"), nil
			}
			return quote("%"+escaped+"%") + ` ESCAPE '\'`, nil
		}
	case Boolean:
		b, err := parseBoolValue(col, value)
		if err != nil {
			return "", err
		}
		return quote(b), nil
	}
	return quote(value), nil
}

// likeEscaper makes caller values match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// parseBoolValue reads a caller-supplied boolean as NetSuite's T/F.
func parseBoolValue(col Column, value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "t", "true", "1", "yes", "y":
		return "T", nil
	case "f", "false", "0", "no", "n":
		return "F", nil
	}
	return "", Errorf(UserErr, ErrInvalidValue, "%s: %q is not a boolean", col.Name, value)
}
