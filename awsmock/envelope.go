package awsmock

import "reflect"

// Envelope key names, as used by the DynamoDB DocumentClient
const (
	ItemKey         = "Item"
	ItemsKey        = "Items"
	CountKey        = "Count"
	ScannedCountKey = "ScannedCount"
	ResponsesKey    = "Responses"
)

// NormalizeSingle shapes a raw get result into a get envelope. A map that already has an Item
// key is returned as is, even if the item is nil; anything else becomes the item.
func NormalizeSingle(raw interface{}) interface{} {
	if m, ok := raw.(map[string]interface{}); ok {
		if _, has := m[ItemKey]; has {
			return raw
		}
	}
	return map[string]interface{}{ItemKey: raw}
}

// NormalizeMany shapes a raw query or scan result into an Items/Count/ScannedCount envelope.
// A bare slice becomes the items. An existing envelope keeps its non-zero counts.
func NormalizeMany(raw interface{}) interface{} {
	m, isMap := raw.(map[string]interface{})
	items, hasItems := m[ItemsKey]
	if !isMap || !hasItems {
		items = []interface{}{}
		if isSlice(raw) {
			items = raw
		}
		n := length(items)
		return map[string]interface{}{ItemsKey: items, CountKey: n, ScannedCountKey: n}
	}

	n := length(items)
	result := make(map[string]interface{}, len(m)+2)
	for k, v := range m {
		result[k] = v
	}
	for _, key := range []string{CountKey, ScannedCountKey} {
		if isFalsy(result[key]) {
			result[key] = n
		}
	}
	return result
}

// NormalizeBatchGet leaves a batch get envelope (one with Responses) as is and otherwise shapes
// the raw result like NormalizeMany.
func NormalizeBatchGet(raw interface{}) interface{} {
	if m, ok := raw.(map[string]interface{}); ok {
		if _, has := m[ResponsesKey]; has {
			return raw
		}
	}
	return NormalizeMany(raw)
}

func isSlice(v interface{}) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func length(v interface{}) int {
	if !isSlice(v) {
		return 0
	}
	return reflect.ValueOf(v).Len()
}

// isFalsy reports whether a count needs filling in: missing, nil, zero, false or empty
func isFalsy(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	}
	return false
}
