package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is an immutable JSON-shaped tree. The zero Value is null.
//
// Numbers decoded from JSON keep their literal so that equality and encoding
// are exact beyond float64 precision; num is the nearest float for callers
// that need arithmetic.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	lit    string
	str    string
	items  []Value
	fields map[string]Value
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// NumberLiteral builds a number from its JSON text, keeping it verbatim.
func NumberLiteral(lit string) (Value, error) {
	lit = strings.TrimSpace(lit)
	if !isJSONNumber(lit) {
		return Value{}, fmt.Errorf("invalid number %q", lit)
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("invalid number %q: %w", lit, err)
	}
	return Value{kind: KindNumber, num: f, lit: lit}, nil
}

func String(s string) Value { return Value{kind: KindString, str: s} }

func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, items: cp}
}

func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, fields: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsRat returns the exact value of a number.
func (v Value) AsRat() (*big.Rat, bool) {
	if v.kind != KindNumber {
		return nil, false
	}
	if v.lit == "" {
		r := new(big.Rat).SetFloat64(v.num)
		return r, r != nil
	}
	if exponentTooLarge(v.lit) {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(v.lit)
	return r, ok
}

// maxExactExponent bounds the decimal exponent expanded into a big.Rat.
const maxExactExponent = 4096

func exponentTooLarge(lit string) bool {
	i := strings.IndexAny(lit, "eE")
	if i < 0 {
		return false
	}
	exp, err := strconv.Atoi(strings.TrimPrefix(lit[i+1:], "+"))
	if err != nil {
		return true
	}
	return exp > maxExactExponent || exp < -maxExactExponent
}

// Literal returns the JSON text of a number as decoded, or its shortest float
// rendering for numbers built from Go values.
func (v Value) Literal() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	if v.lit != "" {
		return v.lit, true
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64), true
}

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// Len returns the number of array items or object fields.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	default:
		return 0
	}
}

func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.fields[name]
	return f, ok
}

// Keys returns object keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep structural equality. Numbers compare by exact decimal
// value, strings byte for byte; no coercion between kinds.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return numbersEqual(v, o)
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, fv := range v.fields {
			ov, ok := o.fields[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts the tree to plain Go values (nil, bool, float64, string,
// []interface{}, map[string]interface{}).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromInterface builds a Value from decoded JSON or plain Go data. Structs and
// other types are converted through their JSON encoding.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return NumberLiteral(t.String())
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case int:
		return integer(strconv.FormatInt(int64(t), 10), float64(t)), nil
	case int32:
		return integer(strconv.FormatInt(int64(t), 10), float64(t)), nil
	case int64:
		return integer(strconv.FormatInt(int64(t), 10), float64(t)), nil
	case uint:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t)), nil
	case uint32:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t)), nil
	case uint64:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t)), nil
	case time.Time:
		return String(t.UTC().Format(time.RFC3339Nano)), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			iv, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = iv
		}
		return Value{kind: KindArray, items: items}, nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			iv, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = iv
		}
		return Value{kind: KindObject, fields: fields}, nil
	}

	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return Null(), nil
	}

	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("unsupported value of type %T: %w", x, err)
	}
	return Parse(data)
}

// MustFromInterface is FromInterface for literals known to be valid.
func MustFromInterface(x interface{}) Value {
	v, err := FromInterface(x)
	if err != nil {
		panic(err)
	}
	return v
}

func integer(lit string, f float64) Value {
	return Value{kind: KindNumber, num: f, lit: lit}
}

func numbersEqual(a, b Value) bool {
	if a.lit == b.lit && a.lit != "" {
		return true
	}
	if a.lit == "" && b.lit == "" {
		return a.num == b.num
	}
	ra, okA := a.AsRat()
	rb, okB := b.AsRat()
	if !okA || !okB {
		return a.num == b.num
	}
	return ra.Cmp(rb) == 0
}

// isJSONNumber checks the JSON number grammar:
// -?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?
func isJSONNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("number %v is not representable in JSON", f)
	}
	return Number(f), nil
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("failed to decode payload: %w", err)
	}
	if dec.More() {
		return Value{}, fmt.Errorf("failed to decode payload: trailing data after JSON value")
	}
	return FromInterface(raw)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return v.Encode()
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Encode returns compact JSON with sorted object keys and HTML escaping
// disabled.
func (v Value) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.encodable()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// encodable mirrors Interface but hands numbers with a literal to the encoder
// as json.Number, which is written verbatim.
func (v Value) encodable() interface{} {
	switch v.kind {
	case KindNumber:
		if v.lit != "" {
			return json.Number(v.lit)
		}
		return v.num
	case KindArray:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.encodable()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.encodable()
		}
		return out
	default:
		return v.Interface()
	}
}

// String renders the value as compact JSON for logs and messages.
func (v Value) String() string {
	data, err := v.Encode()
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(data)
}
