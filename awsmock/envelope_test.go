package awsmock

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type doc = map[string]interface{}

func TestNormalizeSingle(t *testing.T) {
	t.Log("a bare value becomes the item")
	got := NormalizeSingle(doc{"ha": "Ha"})
	if diff := cmp.Diff(doc{"Item": doc{"ha": "Ha"}}, got); diff != "" {
		t.Errorf("NormalizeSingle() mismatch (-want +got):\n%s", diff)
	}

	t.Log("an envelope is left alone, even with a nil item")
	raw := doc{"Item": nil}
	got = NormalizeSingle(raw)
	assert.Equal(t, raw, got)
	_, has := got.(doc)["Item"]
	assert.True(t, has)

	t.Log("nothing at all becomes a nil item")
	assert.Equal(t, doc{"Item": nil}, NormalizeSingle(nil))
}

func TestNormalizeMany(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want interface{}
	}{
		{
			name: "bare slice",
			raw:  []interface{}{doc{"a": 1}, doc{"b": 2}},
			want: doc{"Items": []interface{}{doc{"a": 1}, doc{"b": 2}}, "Count": 2, "ScannedCount": 2},
		},
		{
			name: "typed slice",
			raw:  []doc{{"a": 1}},
			want: doc{"Items": []doc{{"a": 1}}, "Count": 1, "ScannedCount": 1},
		},
		{
			name: "nothing",
			raw:  nil,
			want: doc{"Items": []interface{}{}, "Count": 0, "ScannedCount": 0},
		},
		{
			name: "a bare non-slice is not an item",
			raw:  doc{"x": 1},
			want: doc{"Items": []interface{}{}, "Count": 0, "ScannedCount": 0},
		},
		{
			name: "zero counts are overridden",
			raw:  doc{"Items": []interface{}{doc{"x": 1}}, "Count": 0},
			want: doc{"Items": []interface{}{doc{"x": 1}}, "Count": 1, "ScannedCount": 1},
		},
		{
			name: "non-zero counts are trusted",
			raw:  doc{"Items": []interface{}{doc{"x": 1}}, "Count": 7, "ScannedCount": 9},
			want: doc{"Items": []interface{}{doc{"x": 1}}, "Count": 7, "ScannedCount": 9},
		},
		{
			name: "other envelope fields are kept",
			raw:  doc{"Items": []interface{}{}, "LastEvaluatedKey": doc{"id": 3}},
			want: doc{"Items": []interface{}{}, "Count": 0, "ScannedCount": 0, "LastEvaluatedKey": doc{"id": 3}},
		},
		{
			name: "a present but nil Items still counts as an envelope",
			raw:  doc{"Items": nil, "Count": 3},
			want: doc{"Items": nil, "Count": 3, "ScannedCount": 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NormalizeMany(tt.raw)); diff != "" {
				t.Errorf("NormalizeMany() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeManyCopies(t *testing.T) {
	raw := doc{"Items": []interface{}{1, 2}}
	got := NormalizeMany(raw).(doc)
	assert.Equal(t, 2, got["Count"])
	_, has := raw["Count"]
	assert.False(t, has, "the raw envelope must not be modified")
}

func TestNormalizeBatchGet(t *testing.T) {
	raw := doc{"Responses": doc{"TestTable": []interface{}{doc{"id": 1}}}}
	assert.Equal(t, raw, NormalizeBatchGet(raw))
	assert.Equal(t, doc{"Items": []interface{}{}, "Count": 0, "ScannedCount": 0}, NormalizeBatchGet(nil))
}

func TestIsFalsy(t *testing.T) {
	var nilPtr *int
	one := 1
	for _, v := range []interface{}{nil, 0, int32(0), 0.0, false, "", nilPtr} {
		assert.True(t, isFalsy(v), "%#v should be falsy", v)
	}
	for _, v := range []interface{}{1, int64(-1), 0.5, true, "0", &one, []int{}} {
		assert.False(t, isFalsy(v), "%#v should not be falsy", v)
	}
}
