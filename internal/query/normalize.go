package query

import (
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cast"
)

// Normalizer reshapes raw backend rows into Records typed by the schema.
type Normalizer struct {
	// SkipFalsy treats zero, false and empty source values as absent,
	// matching older consumers of this gateway. When unset, only missing
	// keys and nulls are absent.
	SkipFalsy bool
	Logger    *slog.Logger
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return n.Logger
}

// Object maps a key/value row. Keys are matched case-insensitively against
// the logical column name, then the column's field name, then the field
// named in its SQL reference.
func (n *Normalizer) Object(schema *Schema, row map[string]any) Record {
	lower := make(map[string]any, len(row))
	for k, v := range row {
		lower[strings.ToLower(k)] = v
	}

	rec := make(Record, len(row))
	for _, col := range schema.Projected() {
		v, ok := lower[strings.ToLower(col.Name)]
		if !ok && col.Field != "" {
			v, ok = lower[strings.ToLower(col.Field)]
		}
		if !ok {
			if f := sqlField(col.SQL); f != "" {
				v, ok = lower[f]
			}
		}
		if !ok || n.absent(v) {
			continue
		}
		rec[col.Name] = n.coerce(col, v)
	}
	return rec
}

// sqlField returns the lower-cased field of a plain "alias.field" or
// "field" reference, or "" for expressions.
func sqlField(ref string) string {
	ref = ref[strings.LastIndexByte(ref, '.')+1:]
	if ref == "" {
		return ""
	}
	for _, r := range ref {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return strings.ToLower(ref)
}

// Objects maps every row with Object.
func (n *Normalizer) Objects(schema *Schema, rows []map[string]any) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, n.Object(schema, row))
	}
	return out
}

// Positional maps a row whose values follow the order of the projected
// columns.
func (n *Normalizer) Positional(schema *Schema, row []any) Record {
	cols := schema.Projected()
	rec := make(Record, len(cols))
	for i, col := range cols {
		if i >= len(row) {
			break
		}
		v := row[i]
		if n.absent(v) {
			continue
		}
		rec[col.Name] = n.coerce(col, v)
	}
	return rec
}

// Rows maps every row with Positional.
func (n *Normalizer) Rows(schema *Schema, rows [][]any) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, n.Positional(schema, row))
	}
	return out
}

func (n *Normalizer) absent(v any) bool {
	if v == nil {
		return true
	}
	if !n.SkipFalsy {
		return false
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	}
	return false
}

func (n *Normalizer) coerce(col Column, v any) any {
	switch col.Type {
	case Number:
		f, err := cast.ToFloat64E(strings.TrimSpace(cast.ToString(v)))
		if err != nil {
			n.logger().Warn("value is not numeric", "column", col.Name, "value", v)
			return v
		}
		return f
	case ID:
		return cast.ToString(v)
	case Boolean:
		if b, ok := toBool(v); ok {
			return b
		}
		n.logger().Warn("value is not boolean", "column", col.Name, "value", v)
		return v
	case Date:
		s := strings.TrimSpace(cast.ToString(v))
		iso, err := isoDate(s, col)
		if err != nil {
			n.logger().Warn("value is not a date", "column", col.Name, "value", v, "format", col.dateFormat())
			return v
		}
		return iso
	}
	return v
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "t", "true":
			return true, true
		case "0", "f", "false", "":
			return false, true
		}
	}
	return false, false
}

func isoDate(s string, col Column) (string, error) {
	layout, err := GoLayout(col.dateFormat())
	if err != nil {
		return "", err
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		// Some endpoints already return ISO dates.
		if t, err = time.Parse("2006-01-02", s); err != nil {
			return "", err
		}
		return t.Format("2006-01-02"), nil
	}
	if hasClock(layout) {
		return t.Format("2006-01-02T15:04:05"), nil
	}
	return t.Format("2006-01-02"), nil
}
