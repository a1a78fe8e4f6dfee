package record

import (
	"sort"

	"github.com/tidwall/gjson"
)

// Value is an optional JSON value. Lookups on a missing value yield another
// missing value, so chains like v.Get("a").Get("b").Int() never fail and fall
// back to zero values.
type Value struct {
	r gjson.Result
}

// Get looks up a literal object key; keys may contain '.', ':' or '/'.
func (v Value) Get(key string) Value {
	if !v.r.IsObject() {
		return Value{}
	}
	return Value{r: v.r.Get(gjson.Escape(key))}
}

// Exists reports whether the value is present (JSON null counts as present).
func (v Value) Exists() bool { return v.r.Exists() }

func (v Value) IsObject() bool { return v.r.IsObject() }
func (v Value) IsArray() bool  { return v.r.IsArray() }

// Bool is true only for JSON true or a string parsing as true.
func (v Value) Bool() bool { return v.r.Bool() }

func (v Value) Int() int64 { return v.r.Int() }

func (v Value) String() string { return v.r.String() }

// Raw returns the value's JSON text exactly as it appeared in the document.
func (v Value) Raw() string { return v.r.Raw }

// Keys returns an object's keys sorted lexicographically; nil for non-objects.
func (v Value) Keys() []string {
	if !v.r.IsObject() {
		return nil
	}
	var keys []string
	v.r.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	sort.Strings(keys)
	return keys
}

// First returns the first member of an object in document order, and whether
// there was one that satisfied keep.
func (v Value) First(keep func(Value) bool) (Value, bool) {
	var found Value
	ok := false
	if !v.r.IsObject() {
		return found, false
	}
	v.r.ForEach(func(_, member gjson.Result) bool {
		candidate := Value{r: member}
		if keep(candidate) {
			found, ok = candidate, true
			return false
		}
		return true
	})
	return found, ok
}
