package query

import (
	"encoding/json"
	"strings"
)

// Operator is a generic comparison operator as it appears in tool input.
type Operator string

const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLike         Operator = "Like"
	OpNotLike      Operator = "Not_Like"
)

// Operators lists every generic operator in its wire spelling.
var Operators = []Operator{OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpEqual, OpNotEqual, OpLike, OpNotLike}

// ParseOperator accepts the wire spelling of an operator. Like and Not_Like
// are matched case-insensitively.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	for _, op := range Operators {
		if s == string(op) || strings.EqualFold(s, string(op)) {
			return op, nil
		}
	}
	return "", Errorf(UserErr, ErrUnsupportedOperator, "unknown operator %q", s)
}

// UnmarshalJSON normalizes the operator spelling on decode.
func (o *Operator) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	op, err := ParseOperator(s)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// negates reports whether the operator is a negative comparison.
func (o Operator) negates() bool {
	return o == OpNotEqual || o == OpNotLike
}

// Backend names a target query representation.
type Backend string

const (
	BackendSuiteQL Backend = "suiteql"
	BackendSearch  Backend = "search"
)

// Saved-search operator tokens.
const (
	SearchEqualTo              = "equalto"
	SearchNotEqualTo           = "notequalto"
	SearchLessThan             = "lessthan"
	SearchLessThanOrEqualTo    = "lessthanorequalto"
	SearchGreaterThan          = "greaterthan"
	SearchGreaterThanOrEqualTo = "greaterthanorequalto"
	SearchOn                   = "on"
	SearchNotOn                = "noton"
	SearchBefore               = "before"
	SearchOnOrBefore           = "onorbefore"
	SearchAfter                = "after"
	SearchOnOrAfter            = "onorafter"
	SearchContains             = "contains"
	SearchDoesNotContain       = "doesnotcontain"
	SearchAnyOf                = "anyof"
	SearchNoneOf               = "noneof"
	SearchIs                   = "is"
)

var searchOperators = map[DataType]map[Operator]string{
	Number: {
		OpEqual:        SearchEqualTo,
		OpNotEqual:     SearchNotEqualTo,
		OpLess:         SearchLessThan,
		OpLessEqual:    SearchLessThanOrEqualTo,
		OpGreater:      SearchGreaterThan,
		OpGreaterEqual: SearchGreaterThanOrEqualTo,
	},
	Date: {
		OpEqual:        SearchOn,
		OpNotEqual:     SearchNotOn,
		OpLess:         SearchBefore,
		OpLessEqual:    SearchOnOrBefore,
		OpGreater:      SearchAfter,
		OpGreaterEqual: SearchOnOrAfter,
	},
	String: {
		OpEqual:    SearchContains,
		OpLike:     SearchContains,
		OpNotEqual: SearchDoesNotContain,
		OpNotLike:  SearchDoesNotContain,
	},
	ID: {
		OpEqual:    SearchAnyOf,
		OpLike:     SearchAnyOf,
		OpNotEqual: SearchNoneOf,
		OpNotLike:  SearchNoneOf,
	},
	Boolean: {
		OpEqual:        SearchIs,
		OpNotEqual:     SearchIs,
		OpLess:         SearchIs,
		OpLessEqual:    SearchIs,
		OpGreater:      SearchIs,
		OpGreaterEqual: SearchIs,
		OpLike:         SearchIs,
		OpNotLike:      SearchIs,
	},
}

var suiteQLOperators = map[Operator]string{
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpEqual:        "=",
	OpNotEqual:     "!=",
	OpLike:         "LIKE",
	OpNotLike:      "NOT LIKE",
}

// Translate maps a generic operator on a column of type t to the token the
// backend understands.
func Translate(backend Backend, t DataType, op Operator) (string, error) {
	if !t.valid() {
		return "", Errorf(AIErr, ErrUnsupportedOperator, "unknown data type %q", t)
	}
	switch backend {
	case BackendSuiteQL:
		if t == String {
			switch op {
			case OpEqual, OpLike:
				return "LIKE", nil
			case OpNotEqual, OpNotLike:
				return "NOT LIKE", nil
			}
		}
		if tok, ok := suiteQLOperators[op]; ok {
			return tok, nil
		}
	case BackendSearch:
		if tok, ok := searchOperators[t][op]; ok {
			return tok, nil
		}
	default:
		return "", Errorf(AIErr, ErrUnsupportedOperator, "unknown backend %q", backend)
	}
	if !knownOperator(op) {
		return "", Errorf(UserErr, ErrUnsupportedOperator, "unknown operator %q", op)
	}
	return "", Errorf(UserErr, ErrUnsupportedOperator, "operator %q is not supported for %s columns", op, t)
}

func knownOperator(op Operator) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}
