package awsmock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFixed(t *testing.T) {
	r := &Response{Result: "fixed"}
	resolver := NewResolver(map[string]Source{OpGet: Fixed(r)})

	for i := 0; i < 5; i++ {
		assert.Same(t, r, resolver.Resolve(OpGet, i))
	}
	t.Log("fixed sources have no cursor")
	_, ok := resolver.Cursor(OpGet)
	assert.False(t, ok)
}

func TestResolveUnconfigured(t *testing.T) {
	resolver := NewResolver(nil)
	assert.Nil(t, resolver.Resolve(OpPut, nil))
	_, ok := resolver.Cursor(OpPut)
	assert.False(t, ok)
}

func TestResolveSequence(t *testing.T) {
	rs := []*Response{{Result: 0}, {Result: 1}, {Result: 2}}
	resolver := NewResolver(map[string]Source{OpQuery: Sequence(rs...)})

	_, ok := resolver.Cursor(OpQuery)
	assert.False(t, ok, "cursor starts unset")

	for k := 1; k <= len(rs); k++ {
		assert.Same(t, rs[k-1], resolver.Resolve(OpQuery, nil))
		cursor, ok := resolver.Cursor(OpQuery)
		assert.True(t, ok)
		assert.Equal(t, k-1, cursor)
	}

	t.Log("an exhausted sequence resolves to nothing, silently")
	assert.Nil(t, resolver.Resolve(OpQuery, nil))
	assert.Nil(t, resolver.Resolve(OpQuery, nil))
	cursor, _ := resolver.Cursor(OpQuery)
	assert.Equal(t, 4, cursor)
}

func TestResolveGenerator(t *testing.T) {
	var inputs []interface{}
	gen := func(input interface{}) *Response {
		inputs = append(inputs, input)
		return &Response{Result: input}
	}
	resolver := NewResolver(map[string]Source{OpScan: Generator(gen)})

	for k := 1; k <= 3; k++ {
		r := resolver.Resolve(OpScan, k*10)
		assert.Equal(t, k*10, r.Result)
		cursor, ok := resolver.Cursor(OpScan)
		assert.True(t, ok)
		assert.Equal(t, k-1, cursor)
	}
	assert.Equal(t, []interface{}{10, 20, 30}, inputs)
}

func TestResolveCursorPerOperation(t *testing.T) {
	shared := Sequence(&Response{Result: "a"}, &Response{Result: "b"})
	resolver := NewResolver(map[string]Source{OpQuery: shared, OpScan: shared})

	assert.Equal(t, "a", resolver.Resolve(OpQuery, nil).Result)
	assert.Equal(t, "a", resolver.Resolve(OpScan, nil).Result)
	assert.Equal(t, "b", resolver.Resolve(OpQuery, nil).Result)

	t.Log("two resolvers over the same source do not share cursors")
	other := NewResolver(map[string]Source{OpQuery: shared})
	assert.Equal(t, "a", other.Resolve(OpQuery, nil).Result)
}

func TestSourceOf(t *testing.T) {
	r := &Response{Result: 1}

	assert.Same(t, r, SourceOf(r).resolve(-1, nil))
	assert.Equal(t, 2, SourceOf(Response{Result: 2}).resolve(-1, nil).Result)
	assert.Nil(t, SourceOf(nil).resolve(-1, nil))
	assert.False(t, SourceOf(r).sequenced())

	seq := SourceOf([]*Response{r})
	assert.True(t, seq.sequenced())
	assert.Same(t, r, seq.resolve(0, nil))

	vals := SourceOf([]Response{{Result: "x"}, {Result: "y"}})
	assert.Equal(t, "y", vals.resolve(1, nil).Result)

	gen := SourceOf(func(in interface{}) *Response { return &Response{Result: in} })
	assert.True(t, gen.sequenced())
	assert.Equal(t, "in", gen.resolve(0, "in").Result)

	src := Fixed(r)
	assert.Equal(t, src, SourceOf(src))

	assert.Panics(t, func() { SourceOf(42) })
}
