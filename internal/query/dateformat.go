package query

import (
	"fmt"
	"strings"
	"time"
)

// patternTokens maps NetSuite (Java-style) date pattern tokens to Go layout
// fragments, longest first.
var patternTokens = []struct {
	token  string
	layout string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"a", "PM"},
}

// GoLayout converts a date pattern such as "M/d/yyyy" or "dd.MM.yyyy HH:mm"
// into a Go time layout. Text inside single quotes is copied literally.
func GoLayout(pattern string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		ch := pattern[i]
		if ch == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated quote in date pattern %q", pattern)
			}
			sb.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		if isLetter(ch) {
			matched := false
			for _, t := range patternTokens {
				if strings.HasPrefix(pattern[i:], t.token) {
					sb.WriteString(t.layout)
					i += len(t.token)
					matched = true
					break
				}
			}
			if !matched {
				return "", fmt.Errorf("unsupported token %q in date pattern %q", ch, pattern)
			}
			continue
		}
		sb.WriteByte(ch)
		i++
	}
	return sb.String(), nil
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func hasClock(layout string) bool {
	return strings.Contains(layout, "15") || strings.Contains(layout, "04")
}

var inputLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseDateValue reads a caller-supplied date. ISO forms are tried first,
// then the column's own pattern.
func parseDateValue(value string, c Column) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	layout, err := GoLayout(c.dateFormat())
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(layout, value); err == nil {
		return t, nil
	}
	return time.Time{}, Errorf(UserErr, ErrInvalidValue, "%s: %q is not a date (expected YYYY-MM-DD)", c.Name, value)
}
