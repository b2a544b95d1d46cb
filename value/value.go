// Package value holds the decoded, detached value tree handed to the
// protocol layer.
package value

import (
	"fmt"
	"math"
)

// Value is a node of a decoded tree. The set of implementations is closed:
// Scalar, Sequence, Record and Ignored.
type Value interface {
	isValue()
}

// Kind is the scalar kind of the target value model.
type Kind uint8

const (
	Int8 Kind = iota + 1
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String
)

var kindNames = [...]string{
	Int8: "Int8", Int16: "Int16", Int32: "Int32", Int64: "Int64",
	Uint8: "UInt8", Uint16: "UInt16", Uint32: "UInt32", Uint64: "UInt64",
	Float32: "Float32", Float64: "Float64", String: "String",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsInt reports whether k is a signed integer kind.
func (k Kind) IsInt() bool { return k >= Int8 && k <= Int64 }

// IsUint reports whether k is an unsigned integer kind.
func (k Kind) IsUint() bool { return k >= Uint8 && k <= Uint64 }

// IsFloat reports whether k is a floating-point kind.
func (k Kind) IsFloat() bool { return k == Float32 || k == Float64 }

// Scalar is a leaf value. Integers are held in bits, floats as their
// IEEE-754 bit pattern of the kind's own width.
type Scalar struct {
	kind Kind
	bits uint64
	str  string
}

func (Scalar) isValue() {}

// Kind returns the scalar kind.
func (s Scalar) Kind() Kind { return s.kind }

// Int returns the value of a signed integer scalar.
func (s Scalar) Int() int64 {
	switch {
	case s.kind.IsInt():
		return int64(s.bits)
	case s.kind.IsUint():
		return int64(s.bits)
	case s.kind.IsFloat():
		return int64(s.float())
	}
	return 0
}

// Uint returns the value of an unsigned integer scalar.
func (s Scalar) Uint() uint64 {
	if s.kind.IsFloat() {
		return uint64(s.float())
	}
	return s.bits
}

// Float returns the value of a numeric scalar as float64.
func (s Scalar) Float() float64 {
	switch {
	case s.kind.IsFloat():
		return s.float()
	case s.kind.IsInt():
		return float64(int64(s.bits))
	}
	return float64(s.bits)
}

func (s Scalar) float() float64 {
	if s.kind == Float32 {
		return float64(math.Float32frombits(uint32(s.bits)))
	}
	return math.Float64frombits(s.bits)
}

// Bits returns the raw bit pattern of a numeric scalar: the two's
// complement integer, or the IEEE-754 encoding at the kind's width.
func (s Scalar) Bits() uint64 { return s.bits }

// Str returns the value of a string scalar.
func (s Scalar) Str() string { return s.str }

// Interface returns the scalar as the matching Go type.
func (s Scalar) Interface() any {
	switch s.kind {
	case Int8:
		return int8(s.bits)
	case Int16:
		return int16(s.bits)
	case Int32:
		return int32(s.bits)
	case Int64:
		return int64(s.bits)
	case Uint8:
		return uint8(s.bits)
	case Uint16:
		return uint16(s.bits)
	case Uint32:
		return uint32(s.bits)
	case Uint64:
		return s.bits
	case Float32:
		return math.Float32frombits(uint32(s.bits))
	case Float64:
		return math.Float64frombits(s.bits)
	case String:
		return s.str
	}
	return nil
}

func (s Scalar) String() string {
	switch {
	case s.kind == String:
		return fmt.Sprintf("%q", s.str)
	case s.kind == Float32:
		return fmt.Sprint(math.Float32frombits(uint32(s.bits)))
	default:
		return fmt.Sprint(s.Interface())
	}
}

// NewInt returns a signed integer scalar of kind k.
func NewInt(k Kind, v int64) Scalar { return Scalar{kind: k, bits: uint64(v)} }

// NewUint returns an unsigned integer scalar of kind k.
func NewUint(k Kind, v uint64) Scalar { return Scalar{kind: k, bits: v} }

// NewFloat32 returns a Float32 scalar.
func NewFloat32(v float32) Scalar {
	return Scalar{kind: Float32, bits: uint64(math.Float32bits(v))}
}

// NewFloat64 returns a Float64 scalar.
func NewFloat64(v float64) Scalar {
	return Scalar{kind: Float64, bits: math.Float64bits(v)}
}

// NewString returns a String scalar.
func NewString(v string) Scalar { return Scalar{kind: String, str: v} }

// Sequence is a row-major array of values with its dimensions.
type Sequence struct {
	Dims  []uint64
	Elems []Value
}

func (Sequence) isValue() {}

// Len returns the number of elements.
func (s Sequence) Len() int { return len(s.Elems) }

// Field is one named member of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record holds fields in declaration order.
type Record struct {
	Fields []Field
}

func (Record) isValue() {}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Complete reports whether no field, at any depth, was dropped.
func (r Record) Complete() bool {
	complete := true
	Walk(r, func(v Value) bool {
		if _, ok := v.(Ignored); ok {
			complete = false
		}
		return complete
	})
	return complete
}

// Ignored marks a record member that was dropped in lenient mode because
// its stored type has no representation.
type Ignored struct {
	Reason string
}

func (Ignored) isValue() {}

// Walk visits v and its descendants depth-first. Returning false from fn
// stops descent below the current node.
func Walk(v Value, fn func(Value) bool) {
	if v == nil || !fn(v) {
		return
	}
	switch n := v.(type) {
	case Sequence:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	case Record:
		for _, f := range n.Fields {
			Walk(f.Value, fn)
		}
	}
}

// Flatten returns the leaves of v in row-major, declaration order.
func Flatten(v Value) []Value {
	var out []Value
	Walk(v, func(n Value) bool {
		switch n.(type) {
		case Scalar, Ignored:
			out = append(out, n)
		}
		return true
	})
	return out
}

// Equal reports whether a and b are structurally equal. Floats compare by
// bit pattern, so NaNs with equal payloads are equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x == y
	case Ignored:
		y, ok := b.(Ignored)
		return ok && x == y
	case Sequence:
		y, ok := b.(Sequence)
		if !ok || len(x.Elems) != len(y.Elems) || len(x.Dims) != len(y.Dims) {
			return false
		}
		for i := range x.Dims {
			if x.Dims[i] != y.Dims[i] {
				return false
			}
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case Record:
		y, ok := b.(Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return false
}
