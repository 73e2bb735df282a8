// Package query compiles backend-agnostic query parameters into NetSuite
// SuiteQL statements and saved-search descriptors, and reshapes the raw
// results into typed records.
package query

import (
	"fmt"
	"strings"
)

// MaxLimit is the system-wide ceiling on a requested result limit.
const MaxLimit = 10000

// DataType is the semantic type of a column. It selects both the operator
// table and the value formatting rule on both compiler paths.
type DataType string

const (
	String  DataType = "string"
	Number  DataType = "number"
	Date    DataType = "date"
	Boolean DataType = "boolean"
	ID      DataType = "id"
)

func (t DataType) valid() bool {
	switch t {
	case String, Number, Date, Boolean, ID:
		return true
	}
	return false
}

// DefaultDateFormat is the NetSuite date pattern used when a column does not
// declare one.
const DefaultDateFormat = "M/d/yyyy"

// Column describes one logical output field of a tool.
type Column struct {
	Name string
	Type DataType

	// SQL is the SuiteQL column expression, e.g. "a.acctnumber".
	SQL string

	// Field, Join, Summary and Text describe the saved-search column.
	Field   string
	Join    string
	Summary string
	Text    bool

	// Formula is a computed search column in "formulatext: {expr}" form.
	Formula string
	// FilterFormula replaces the field reference in search filters only.
	FilterFormula string

	DateFormat string

	// FilterOnly columns can be filtered on but are never projected.
	FilterOnly bool
}

func (c Column) dateFormat() string {
	if c.DateFormat != "" {
		return c.DateFormat
	}
	return DefaultDateFormat
}

// Schema is a validated, ordered set of columns.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema validates cols and returns a Schema preserving their order.
func NewSchema(cols ...Column) (*Schema, error) {
	s := &Schema{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if c.Name == "" {
			return nil, Errorf(AIErr, ErrUnknownColumn, "column with empty name")
		}
		if !c.Type.valid() {
			return nil, Errorf(AIErr, ErrUnknownColumn, "column %s has unknown type %q", c.Name, c.Type)
		}
		if c.SQL == "" && c.Field == "" && c.Formula == "" {
			return nil, Errorf(AIErr, ErrUnknownColumn, "column %s has no backend reference", c.Name)
		}
		if c.DateFormat != "" {
			if _, err := GoLayout(c.DateFormat); err != nil {
				return nil, Errorf(AIErr, ErrUnknownColumn, "column %s: %v", c.Name, err)
			}
		}
		key := strings.ToLower(c.Name)
		if _, dup := s.index[key]; dup {
			return nil, Errorf(AIErr, ErrUnknownColumn, "duplicate column %s", c.Name)
		}
		s.index[key] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on invalid input. It is meant for
// static catalog definitions.
func MustSchema(cols ...Column) *Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(fmt.Sprintf("query: %v", err))
	}
	return s
}

// Lookup finds a column by logical name, ignoring case.
func (s *Schema) Lookup(name string) (Column, bool) {
	i, ok := s.index[strings.ToLower(name)]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Projected returns the columns that appear in query output.
func (s *Schema) Projected() []Column {
	out := make([]Column, 0, len(s.columns))
	for _, c := range s.columns {
		if !c.FilterOnly {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the logical names of all columns.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Direction is a sort direction. The empty value means "use the default".
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order requests sorting by a logical column.
type Order struct {
	Column    string    `json:"Column"`
	SortOrder Direction `json:"SortOrder,omitempty"`
}

// Filter is one generic comparison on a logical column.
type Filter struct {
	Column   string   `json:"Column"`
	Operator Operator `json:"Operator"`
	Value    string   `json:"Value"`
}

// Params is the generic query envelope shared by every tool.
type Params struct {
	CountOnly bool     `json:"CountOnly,omitempty"`
	OrderBy   *Order   `json:"OrderBy,omitempty"`
	Filters   []Filter `json:"Filters,omitempty"`
	Limit     int      `json:"Limit,omitempty"`
	Offset    int      `json:"Offset,omitempty"`
}

// Validate checks the envelope against the central limits.
func (p Params) Validate() error {
	if p.Limit < 0 {
		return Errorf(UserErr, ErrInvalidValue, "limit must not be negative, got %d", p.Limit)
	}
	if p.Limit > MaxLimit {
		return Errorf(AIErr, ErrLimitExceeded, "limit %d exceeds the maximum of %d", p.Limit, MaxLimit)
	}
	if p.Offset < 0 {
		return Errorf(UserErr, ErrInvalidValue, "offset must not be negative, got %d", p.Offset)
	}
	if p.OrderBy != nil {
		switch Direction(strings.ToUpper(string(p.OrderBy.SortOrder))) {
		case "", Asc, Desc:
		default:
			return Errorf(UserErr, ErrInvalidValue, "sort order must be ASC or DESC, got %q", p.OrderBy.SortOrder)
		}
	}
	return nil
}

// Record is one normalized result row keyed by logical column name.
type Record map[string]any

// resolveOrder picks the order column: the requested one when it is known
// and projected, otherwise the default. ok is false when neither resolves.
func resolveOrder(schema *Schema, requested *Order, def Order) (Column, Direction, bool) {
	defDir := normDirection(def.SortOrder)
	if requested != nil {
		if c, ok := schema.Lookup(requested.Column); ok && !c.FilterOnly {
			dir := normDirection(requested.SortOrder)
			if dir == "" {
				dir = defDir
			}
			if dir == "" {
				dir = Asc
			}
			return c, dir, true
		}
	}
	if c, ok := schema.Lookup(def.Column); ok && !c.FilterOnly {
		if defDir == "" {
			defDir = Asc
		}
		return c, defDir, true
	}
	return Column{}, "", false
}

func normDirection(d Direction) Direction {
	return Direction(strings.ToUpper(strings.TrimSpace(string(d))))
}
