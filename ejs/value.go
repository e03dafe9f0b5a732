package ejs

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Ordered is implemented by mappings that remember insertion order.
// Their keys are iterated in that order by for..of loops.
type Ordered interface {
	Keys() []string
	Get(key string) (any, bool)
}

// keyOrder remembers the iteration order of maps converted from Ordered
// values, keyed by map identity.
type keyOrder map[uintptr][]string

// normalize converts Ordered values (recursively) into plain maps that the
// expression engine can index, recording their key order.
func (o keyOrder) normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Ordered:
		keys := t.Keys()
		m := make(map[string]any, len(keys))
		for _, k := range keys {
			val, _ := t.Get(k)
			m[k] = o.normalize(val)
		}
		o[reflect.ValueOf(m).Pointer()] = keys
		return m
	case map[string]any:
		out := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for k, val := range t {
			out[k] = o.normalize(val)
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o[reflect.ValueOf(out).Pointer()] = keys
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = o.normalize(val)
		}
		return out
	}
	return v
}

// keysOf returns the iteration order of m.
func (o keyOrder) keysOf(m map[string]any) []string {
	if keys, ok := o[reflect.ValueOf(m).Pointer()]; ok && len(keys) == len(m) {
		return keys
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type entry struct {
	key   any
	value any
}

// entries lists what a for..of loop visits: index/value pairs for
// sequences, key/value pairs for mappings.
func (o keyOrder) entries(v any) ([]entry, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]any); ok {
		keys := o.keysOf(m)
		out := make([]entry, len(keys))
		for i, k := range keys {
			out[i] = entry{key: k, value: m[k]}
		}
		return out, nil
	}
	if s, ok := v.(string); ok {
		out := make([]entry, 0, len(s))
		i := 0
		for _, r := range s {
			out = append(out, entry{key: i, value: string(r)})
			i++
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]entry, rv.Len())
		for i := range out {
			out[i] = entry{key: i, value: rv.Index(i).Interface()}
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]entry, len(keys))
		for i, k := range keys {
			out[i] = entry{key: k.Interface(), value: rv.MapIndex(k).Interface()}
		}
		return out, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrNotIterable, v)
}

// truthy follows JavaScript truthiness.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64(t) != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// stringify renders a value the way template output expects: nil prints
// nothing, sequences are comma-joined, mappings print as objects.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return t.String()
	case map[string]any:
		return "[object Object]"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}
