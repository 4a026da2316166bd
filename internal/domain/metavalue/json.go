package metavalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MarshalJSON encodes the value with map keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.num.String())
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("metavalue: unknown kind %d", v.kind)
	}
	return nil
}

// UnmarshalJSON decodes any JSON document, preserving object key order and
// number literals.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Null(), err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Null(), errors.New("metavalue: trailing data after JSON value")
	}
	return v, nil
}

// ParseStored decodes a value as persisted in a meta table. Text that is not
// valid JSON is treated as a plain string, which is how hand-written rows
// and legacy imports arrive.
func ParseStored(text string) Value {
	if text == "" {
		return String("")
	}
	v, err := Parse([]byte(text))
	if err != nil {
		return String(text)
	}
	return v
}

// Encode returns the JSON text for storage.
func Encode(v Value) string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "null"
	}
	return string(b)
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Value{kind: KindNumber, num: t}, nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Value{kind: KindList, list: items}, nil
		case '{':
			fields := []Field{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("metavalue: object key %v is not a string", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				fields = append(fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Value{kind: KindMap, fields: fields}, nil
		}
	}
	return Null(), fmt.Errorf("metavalue: unexpected token %v", tok)
}
