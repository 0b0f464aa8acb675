package wire

import (
	"strconv"
	"strings"
)

// Kind identifies which member of the value union is set.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindIntList
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindIntList:
		return "intlist"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is one protocol parameter value: a boolean, a signed integer,
// a list of integers, or an unescaped string. Immutable once built.
type Value struct {
	kind Kind
	b    bool
	i    int64
	list []int64
	s    string
}

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int builds an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// IntList builds an integer-list value. An empty list is valid.
func IntList(vs ...int64) Value { return Value{kind: KindIntList, list: vs} }

// String builds a string value. The string is stored unescaped;
// escaping happens at encode time.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports which union member is set.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean member; ok is false for other kinds.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer member; ok is false for other kinds.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsIntList returns the list member; ok is false for other kinds.
func (v Value) AsIntList() ([]int64, bool) { return v.list, v.kind == KindIntList }

// AsString returns the string member; ok is false for other kinds.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// render writes the wire form of the value.
func (v Value) render(sb *strings.Builder) {
	switch v.kind {
	case KindBool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindIntList:
		sb.WriteByte('[')
		for i, n := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(n, 10))
		}
		sb.WriteByte(']')
	case KindString:
		sb.WriteByte('"')
		for i := 0; i < len(v.s); i++ {
			c := v.s[i]
			if c == '\\' || c == '"' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(c)
		}
		sb.WriteByte('"')
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindIntList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case KindString:
		return v.s == o.s
	}
	return false
}
