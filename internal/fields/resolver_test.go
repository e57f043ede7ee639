package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFirstPresentCandidateWins(t *testing.T) {
	bag := Bag{"A": 1, "B": 2}

	assert.Equal(t, 2, Resolve(bag, []string{"B", "A"}, 0))
	assert.Equal(t, 1, Resolve(bag, []string{"A", "B"}, 0))
}

func TestResolveSkipsNilAndReturnsDefault(t *testing.T) {
	bag := Bag{"Writer": nil, "Other": "x"}

	assert.Equal(t, "fallback", Resolve(bag, []string{"Writer", "Content Writer"}, "fallback"))
	assert.Nil(t, Resolve(Bag{}, nil, nil))
	assert.Equal(t, "", Resolve(nil, []string{"anything"}, ""))
}

func TestStringCoercion(t *testing.T) {
	cases := []struct {
		name string
		bag  Bag
		want string
	}{
		{name: "plain", bag: Bag{"v": "hello"}, want: "hello"},
		{name: "integer float", bag: Bag{"v": float64(1200)}, want: "1200"},
		{name: "fraction", bag: Bag{"v": 1.5}, want: "1.5"},
		{name: "array", bag: Bag{"v": []any{"a", "b"}}, want: "a, b"},
		{name: "collaborator", bag: Bag{"v": map[string]any{"id": "usr1", "name": "Avery"}}, want: "Avery"},
		{name: "missing", bag: Bag{}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, String(tc.bag, []string{"v"}))
		})
	}
}

func TestNumberCoercion(t *testing.T) {
	assert.Equal(t, 1200.0, Number(Bag{"v": "1,200"}, []string{"v"}))
	assert.Equal(t, 42.0, Number(Bag{"v": float64(42)}, []string{"v"}))
	assert.Equal(t, 7.0, Number(Bag{"v": []any{float64(7)}}, []string{"v"}))
	assert.Equal(t, 0.0, Number(Bag{"v": "n/a"}, []string{"v"}))
	assert.Equal(t, 0.0, Number(Bag{}, []string{"v"}))
}

func TestStringsWrapsScalars(t *testing.T) {
	assert.Equal(t, []string{"rec1"}, Strings(Bag{"Client": "rec1"}, ClientCandidates))
	assert.Equal(t, []string{"rec1", "rec2"}, Strings(Bag{"Clients": []any{"rec1", "rec2"}}, ClientCandidates))
	assert.Equal(t, []string{}, Strings(Bag{}, ClientCandidates))
}

func TestTableCandidatesFallsBackToAttr(t *testing.T) {
	assert.Equal(t, []string{"unknown"}, KeywordFields.Candidates("unknown"))
	assert.Equal(t, ClientCandidates, ArticleFields.Candidates(Client))
	// extensions override the shared entry
	assert.Equal(t, "Due Date (Publication)", ArticleFields.Candidates(DueDate)[0])
	assert.Equal(t, "Due Date", KeywordFields.Candidates(DueDate)[0])
}

func TestBool(t *testing.T) {
	assert.True(t, Bool(Bag{"v": true}, []string{"v"}))
	assert.True(t, Bool(Bag{"v": "true"}, []string{"v"}))
	assert.False(t, Bool(Bag{}, []string{"v"}))
}

func TestOwnerIDsIncludesCollaboratorIDs(t *testing.T) {
	bag := Bag{
		"Writer":         "Avery",
		"Content Writer": []any{map[string]any{"id": "usr1", "name": "Jo"}},
		"Editor":         []string{"Avery", "Blake"},
		"Title":          "ignored",
	}

	assert.Equal(t, []string{"Avery", "Jo", "usr1", "Blake"}, OwnerIDs(bag))
	assert.Equal(t, []string{}, OwnerIDs(Bag{}))
}
