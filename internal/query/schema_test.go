package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema_Validation(t *testing.T) {
	tests := []struct {
		name string
		cols []Column
	}{
		{"empty name", []Column{{Type: String, SQL: "x"}}},
		{"unknown type", []Column{{Name: "A", Type: "money", SQL: "x"}}},
		{"no reference", []Column{{Name: "A", Type: String}}},
		{"duplicate ignoring case", []Column{{Name: "A", Type: String, SQL: "x"}, {Name: "a", Type: String, SQL: "y"}}},
		{"bad date format", []Column{{Name: "A", Type: Date, SQL: "x", DateFormat: "yyyy-QQ"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.cols...)
			require.Error(t, err)
			assert.Equal(t, AIErr, KindOf(err))
		})
	}
}

func TestSchema_LookupAndProjection(t *testing.T) {
	s := MustSchema(
		Column{Name: "Id", Type: ID, SQL: "a.id"},
		Column{Name: "Subsidiary", Type: ID, SQL: "a.subsidiary", FilterOnly: true},
		Column{Name: "Name", Type: String, SQL: "a.name"},
	)

	c, ok := s.Lookup("NAME")
	require.True(t, ok)
	assert.Equal(t, "a.name", c.SQL)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)

	var projected []string
	for _, c := range s.Projected() {
		projected = append(projected, c.Name)
	}
	assert.Equal(t, []string{"Id", "Name"}, projected)
	assert.Equal(t, []string{"Id", "Subsidiary", "Name"}, s.Names())
}

func TestMustSchema_Panics(t *testing.T) {
	assert.Panics(t, func() { MustSchema(Column{Name: "A"}) })
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, Params{Limit: MaxLimit}.Validate())

	err := Params{Limit: MaxLimit + 1}.Validate()
	assert.ErrorIs(t, err, ErrLimitExceeded)

	assert.ErrorIs(t, Params{Offset: -1}.Validate(), ErrInvalidValue)
	assert.ErrorIs(t, Params{OrderBy: &Order{Column: "A", SortOrder: "UP"}}.Validate(), ErrInvalidValue)
}

func TestGoLayout(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"M/d/yyyy", "1/2/2006"},
		{"MM/dd/yyyy", "01/02/2006"},
		{"dd.MM.yyyy", "02.01.2006"},
		{"d-MMM-yy", "2-Jan-06"},
		{"yyyy-MM-dd'T'HH:mm:ss", "2006-01-02T15:04:05"},
		{"M/d/yyyy h:mm a", "1/2/2006 3:04 PM"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := GoLayout(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := GoLayout("yyyy 'oops")
	assert.Error(t, err)
}
