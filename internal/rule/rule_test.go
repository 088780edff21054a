package rule

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosem/internal/ontology"
)

var (
	square   = ontology.MustSignature("Square", "shape")
	regionOf = ontology.MustSignature("RegionOf", "region", "shape")
	distance = ontology.MustSignature("Distance", "number", "entity", "entity")
)

func TestRulesCompareByValue(t *testing.T) {
	ctx := NewContext("s1", []string{"square", "region"}, nil, map[int]ontology.Signature{0: square})

	a := NewUnaryRule(ctx, At(1), regionOf, NewTagRule(ctx, At(0), square))
	b := NewUnaryRule(ctx, At(1), regionOf, NewTagRule(ctx, At(0), square))
	if a != b {
		t.Fatalf("expected equal unary rules: %s vs %s", a, b)
	}

	other := NewContext("s1", []string{"square", "region"}, nil, nil)
	c := NewUnaryRule(other, At(1), regionOf, NewTagRule(other, At(0), square))
	if a == c {
		t.Fatal("rules over distinct contexts must differ")
	}

	set := map[SemanticRule]int{a: 1}
	set[b]++
	if len(set) != 1 || set[a] != 2 {
		t.Fatalf("expected rules to collapse as map keys: %v", set)
	}
}

func TestBinaryRuleAllowsSelfPairing(t *testing.T) {
	ctx := NewContext("s1", []string{"square"}, nil, map[int]ontology.Signature{0: square})
	leaf := NewTagRule(ctx, At(0), square)
	r := NewBinaryRule(ctx, None, distance, leaf, leaf)

	assert.Equal(t, 2, r.Arity())
	assert.Equal(t, r.A(), r.B())
	assert.Equal(t, "Distance@none(Square@0, Square@0)", r.String())
}

func TestTagRulesListsParentThenChildren(t *testing.T) {
	ctx := NewContext("s1", []string{"square", "region"}, nil, nil)
	r := NewBinaryRule(ctx, At(1), distance, NewTagRule(ctx, At(0), square), NewTagRule(nil, None, square))

	want := []TagRule{
		{Context: ctx, Index: At(1), Signature: distance},
		{Context: ctx, Index: At(0), Signature: square},
		{Context: ctx, Index: None, Signature: square},
	}
	got := TagRules(r)
	if diff := cmp.Diff(want, got, cmp.Comparer(func(x, y *Context) bool { return x == y })); diff != "" {
		t.Fatalf("unexpected tag rules (-want +got):\n%s", diff)
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := NewContext("s1", []string{"square", "region"}, nil, map[int]ontology.Signature{0: square})

	word, ok := ctx.Word(At(1))
	require.True(t, ok)
	assert.Equal(t, "region", word)

	_, ok = ctx.Word(None)
	assert.False(t, ok)
	_, ok = ctx.Word(At(5))
	assert.False(t, ok)

	tag, ok := ctx.Tag(At(0))
	require.True(t, ok)
	assert.Equal(t, square, tag)
	_, ok = ctx.Tag(At(1))
	assert.False(t, ok)
}

func TestIndexEncoding(t *testing.T) {
	data, err := json.Marshal([]Index{At(3), None})
	require.NoError(t, err)
	assert.JSONEq(t, `[3, null]`, string(data))

	var decoded []Index
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []Index{3, None}, decoded)

	assert.Error(t, json.Unmarshal([]byte(`-2`), new(Index)))
}
