package blade

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Data is the render data passed to templates: an ordered mapping from
// string keys to values. Values are usually string, numbers, bool, nil,
// *Data or []any, but any Go value is accepted.
//
// The zero value is ready to use. Data is not safe for concurrent mutation.
type Data struct {
	keys   []string
	values map[string]any
}

// NewData creates Data from alternating key/value pairs.
func NewData(pairs ...any) *Data {
	d := &Data{}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return d
}

// DataOf wraps a plain map. Keys are ordered alphabetically since Go maps
// carry no order.
func DataOf(m map[string]any) *Data {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := &Data{keys: keys, values: make(map[string]any, len(m))}
	for k, v := range m {
		d.values[k] = v
	}
	return d
}

// ToData converts supported caller values into Data: *Data, Data, nil,
// maps keyed by strings (gin.H included) and structs (through their JSON
// form, which keeps field order).
func ToData(v any) (*Data, error) {
	switch t := v.(type) {
	case nil:
		return &Data{}, nil
	case *Data:
		if t == nil {
			return &Data{}, nil
		}
		return t, nil
	case Data:
		return &t, nil
	case map[string]any:
		return DataOf(t), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return DataOf(m), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("blade: cannot use %T as render data: %w", v, err)
	}
	d := &Data{}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("blade: cannot use %T as render data: %w", v, err)
	}
	return d, nil
}

// Set stores v under key, keeping the original position of existing keys.
func (d *Data) Set(key string, v any) *Data {
	if d.values == nil {
		d.values = map[string]any{}
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
	return d
}

// Get returns the value for key; ok is false when the key is absent.
func (d *Data) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Lookup resolves a dotted path such as "user.profile.name" through nested
// Data and maps.
func (d *Data) Lookup(path string) (any, bool) {
	var cur any = d
	for _, part := range strings.Split(path, ".") {
		switch t := cur.(type) {
		case *Data:
			v, ok := t.Get(part)
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := t[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// Keys returns the keys in insertion order.
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	return d.keys
}

// Len returns the number of keys.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Clone returns a shallow copy.
func (d *Data) Clone() *Data {
	c := &Data{}
	for _, k := range d.Keys() {
		c.Set(k, d.values[k])
	}
	return c
}

// Merge returns a copy of d overlaid with over; keys from over win.
// Neither input is modified.
func (d *Data) Merge(over *Data) *Data {
	c := d.Clone()
	for _, k := range over.Keys() {
		c.Set(k, over.values[k])
	}
	return c
}

// MarshalJSON writes the keys in order.
func (d *Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order; nested objects become
// *Data, integral numbers int64 and other numbers float64.
func (d *Data) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	obj, ok := v.(*Data)
	if !ok {
		return fmt.Errorf("blade: render data must be a JSON object, got %T", v)
	}
	*d = *obj
	return nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &Data{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("blade: unexpected object key %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("blade: unexpected delimiter %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	}
	return tok, nil
}

// UnmarshalYAML decodes a mapping node keeping key order.
func (d *Data) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}
	obj, ok := v.(*Data)
	if !ok {
		return fmt.Errorf("blade: render data must be a YAML mapping, got %T", v)
	}
	*d = *obj
	return nil
}

func decodeYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return &Data{}, nil
		}
		return decodeYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	case yaml.MappingNode:
		obj := &Data{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			val, err := decodeYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(node.Content[i].Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			val, err := decodeYAMLNode(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
