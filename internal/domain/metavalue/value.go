// Package metavalue provides the tagged-union value stored in post and term
// metadata. Values are Null, Bool, Number, String, List or Map; maps keep
// insertion order so documents round-trip through JSON without reshuffling.
package metavalue

import (
	"encoding/json"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Field is one key/value pair of a Map value.
type Field struct {
	Key   string
	Value Value
}

// Value is an immutable metadata value. The zero Value is Null.
type Value struct {
	kind   Kind
	b      bool
	num    json.Number
	s      string
	list   []Value
	fields []Field
}

func Null() Value           { return Value{} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps a JSON number literal. Invalid literals become Null.
func Number(n json.Number) Value {
	if _, err := strconv.ParseFloat(string(n), 64); err != nil {
		return Null()
	}
	return Value{kind: KindNumber, num: n}
}

func Int(n int64) Value { return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(n, 10))} }

func Float(f float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}
}

func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

func Map(fields ...Field) Value {
	return Value{kind: KindMap, fields: append([]Field(nil), fields...)}
}

// F is shorthand for building a Field.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Number() (json.Number, bool) { return v.num, v.kind == KindNumber }

// Int64 returns the value as an integer when it is a Number holding an
// integer, or a String holding only digits.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindNumber:
		n, err := v.num.Int64()
		return n, err == nil
	case KindString:
		n, err := strconv.ParseInt(v.s, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Items returns a copy of the list elements.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.list...)
}

// Fields returns a copy of the map entries in insertion order.
func (v Value) Fields() []Field {
	if v.kind != KindMap {
		return nil
	}
	return append([]Field(nil), v.fields...)
}

// Get returns the first entry stored under key in a Map value.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Len is the number of list items or map entries.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.fields)
	}
	return 0
}

// Text renders scalars as plain text, the way they are compared in SQL
// (strings unquoted, numbers as literals, bools as 1/empty). Structured
// values render as JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "1"
		}
		return ""
	case KindNumber:
		return v.num.String()
	case KindString:
		return v.s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// Equal reports deep equality, including map entry order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Key != b.fields[i].Key || !Equal(a.fields[i].Value, b.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts decoded Go values (as produced by encoding/json or
// literals in code) into a Value. Other types go through their JSON
// encoding, or become Null when they cannot be encoded.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		return Number(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case int32:
		return Int(int64(t))
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = FromAny(it)
		}
		return Value{kind: KindList, list: items}
	case []string:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = String(it)
		}
		return Value{kind: KindList, list: items}
	case map[string]any:
		v, err := roundTrip(t)
		if err != nil {
			return Null()
		}
		return v
	}
	v, err := roundTrip(x)
	if err != nil {
		return Null()
	}
	return v
}

func roundTrip(x any) (Value, error) {
	b, err := json.Marshal(x)
	if err != nil {
		return Null(), err
	}
	return Parse(b)
}
