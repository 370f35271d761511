package database

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

type (
	// Document is a single record of a collection, keyed by field name.
	// The identity of a document is kept under the "_id" field.
	Document map[string]interface{}

	// Filter selects documents by equality of top level fields
	Filter map[string]interface{}
)

func (d Document) ID() (interface{}, bool) {
	id, ok := d[IDField]
	if !ok || id == nil {
		return nil, false
	}

	return id, true
}

// Rename moves a field to a new name, missing fields are ignored
func (d Document) Rename(from, to string) {
	v, ok := d[from]
	if !ok {
		return
	}

	delete(d, from)
	d[to] = v
}

// Clone creates a deep copy of nested maps and slices
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	return cloneValue(d).(Document)
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		c := make(Document, len(t))
		for k, val := range t {
			c[k] = cloneValue(val)
		}
		return c
	case map[string]interface{}:
		c := make(map[string]interface{}, len(t))
		for k, val := range t {
			c[k] = cloneValue(val)
		}
		return c
	case []interface{}:
		c := make([]interface{}, len(t))
		for i := range t {
			c[i] = cloneValue(t[i])
		}
		return c
	default:
		return v
	}
}

// Matches reports whether every filter field equals the document field.
// Numbers are compared by value regardless of their Go type.
func (f Filter) Matches(d Document) bool {
	for field, expected := range f {
		actual, ok := d[field]
		if !ok {
			return false
		}

		if !valuesEqual(expected, actual) {
			return false
		}
	}

	return true
}

func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// IDKey renders a document identity as a comparable string key.
// Strings and numbers never share a key, integral numbers share one
// key whatever their Go type.
func IDKey(id interface{}) string {
	switch n := id.(type) {
	case string:
		return "s:" + n
	case int:
		return "n:" + strconv.FormatInt(int64(n), 10)
	case int32:
		return "n:" + strconv.FormatInt(int64(n), 10)
	case int64:
		return "n:" + strconv.FormatInt(n, 10)
	case uint:
		return "n:" + strconv.FormatUint(uint64(n), 10)
	case uint32:
		return "n:" + strconv.FormatUint(uint64(n), 10)
	case uint64:
		return "n:" + strconv.FormatUint(n, 10)
	case float32:
		return "n:" + formatFloat(float64(n))
	case float64:
		return "n:" + formatFloat(n)
	default:
		return fmt.Sprintf("%T:%v", id, id)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return strconv.FormatInt(int64(f), 10)
	}

	return strconv.FormatFloat(f, 'g', -1, 64)
}
