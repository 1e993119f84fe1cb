package jsonval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the JSON type of a Value. Missing marks an absent member.
type Kind int

const (
	Missing Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "missing"
	}
}

// Value is a decoded JSON tree. The zero Value is Missing, which is what
// every lookup on an absent member returns.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  map[string]Value
}

func nullValue() Value { return Value{kind: Null} }
func boolValue(b bool) Value { return Value{kind: Bool, b: b} }
func numberValue(n json.Number) Value { return Value{kind: Number, num: n} }
func stringValue(s string) Value { return Value{kind: String, str: s} }

var ErrTrailingData = errors.New("unexpected data after top-level value")

// Parse decodes exactly one JSON document. Numbers keep their source text so
// decimal amounts are not routed through float64.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return Value{}, err
		}
		return Value{}, ErrTrailingData
	}
	return fromAny(raw)
}

func fromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return nullValue(), nil
	case bool:
		return boolValue(t), nil
	case json.Number:
		return numberValue(t), nil
	case string:
		return stringValue(t), nil
	case []any:
		arr := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, v)
		}
		return Value{kind: Array, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = v
		}
		return Value{kind: Object, obj: obj}, nil
	default:
		return Value{}, fmt.Errorf("jsonval: unsupported type %T", raw)
	}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsMissing() bool { return v.kind == Missing }
func (v Value) IsNull() bool { return v.kind == Null }

// Exists reports whether the node is present and not null.
func (v Value) Exists() bool { return v.kind != Missing && v.kind != Null }

// Get walks a dotted path ("total.gross.amount"). Numeric segments index into
// arrays. Any absent segment yields Missing.
func (v Value) Get(path string) Value {
	if path == "" {
		return v
	}
	return v.Path(strings.Split(path, ".")...)
}

func (v Value) Path(segments ...string) Value {
	cur := v
	for _, seg := range segments {
		switch cur.kind {
		case Object:
			next, ok := cur.obj[seg]
			if !ok {
				return Value{}
			}
			cur = next
		case Array:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return Value{}
			}
			cur = cur.Index(i)
		default:
			return Value{}
		}
	}
	return cur
}

func (v Value) Index(i int) Value {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

// Items returns array elements; any other kind has none.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.arr
}

// Keys returns an object's member names in sorted order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text renders scalars as text. Missing, null, arrays and objects give "".
func (v Value) Text() string {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return v.num.String()
	case Bool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Int returns the integer value of a number or numeric string, truncating
// fractions. Values outside the int range and everything else are 0.
func (v Value) Int() int {
	var s string
	switch v.kind {
	case Number:
		s = v.num.String()
	case String:
		s = strings.TrimSpace(v.str)
	default:
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	n := d.BigInt()
	if !n.IsInt64() || int64(int(n.Int64())) != n.Int64() {
		return 0
	}
	return int(n.Int64())
}

// Decimal returns the value of a number or numeric string, zero otherwise.
func (v Value) Decimal() decimal.Decimal {
	var s string
	switch v.kind {
	case Number:
		s = v.num.String()
	case String:
		s = strings.TrimSpace(v.str)
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Bool reports whether v is the JSON literal true.
func (v Value) Bool() bool {
	return v.kind == Bool && v.b
}
