package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/onoma/constants"
)

func TestParseSuggestions(t *testing.T) {
	g := GrammarFor(constants.SnakeCase, 1, 10)

	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"suggestions":["sales_report","q3_sales","revenue_summary"]}`,
			want: []string{"sales_report", "q3_sales", "revenue_summary"},
		},
		{name: "two items", raw: `{"suggestions":["a_b","c_d"]}`, wantErr: true},
		{name: "four items", raw: `{"suggestions":["a","b","c","d"]}`, wantErr: true},
		{name: "wrong convention", raw: `{"suggestions":["salesReport","q3_sales","revenue"]}`, wantErr: true},
		{name: "extra property", raw: `{"suggestions":["a","b","c"],"reason":"x"}`, wantErr: true},
		{name: "missing key", raw: `{"names":["a","b","c"]}`, wantErr: true},
		{name: "not json", raw: `sales_report`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseSuggestions(g, []byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, set.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.All())
			assert.Equal(t, tt.want[0], set.Best())
		})
	}
}

func TestNewSuggestionSet(t *testing.T) {
	g := GrammarFor(constants.PascalCase, 1, 5)

	set, err := NewSuggestionSet(g, []string{"SalesReport", "QuarterlySales", "Revenue"})
	require.NoError(t, err)
	assert.Equal(t, "SalesReport", set.Best())

	_, err = NewSuggestionSet(g, []string{"SalesReport", "Revenue"})
	assert.ErrorIs(t, err, ErrWrongCount)

	_, err = NewSuggestionSet(g, []string{"SalesReport", "sales_report", "Revenue"})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAllReturnsCopy(t *testing.T) {
	g := GrammarFor(constants.SnakeCase, 1, 3)
	set, err := NewSuggestionSet(g, []string{"a", "b", "c"})
	require.NoError(t, err)

	all := set.All()
	all[0] = "mutated"
	assert.Equal(t, "a", set.Best())
}

func TestFromCandidates(t *testing.T) {
	g := GrammarFor(constants.SnakeCase, 1, 5)

	set, err := FromCandidates(g, []string{"Bad Name", "page_one", "page_two", "BAD", "page_three", "page_four"})
	require.NoError(t, err)
	assert.Equal(t, []string{"page_one", "page_two", "page_three"}, set.All())

	_, err = FromCandidates(g, []string{"page_one", "page_two"})
	assert.ErrorIs(t, err, ErrWrongCount)

	_, err = FromCandidates(g, nil)
	assert.ErrorIs(t, err, ErrWrongCount)
}
