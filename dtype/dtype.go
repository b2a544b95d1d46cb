package dtype

import (
	"encoding/binary"
	"fmt"
)

// Type is a stored type descriptor. The set of implementations is closed.
type Type interface {
	// Size returns the number of bytes one instance occupies in a buffer.
	Size() uint64
	fmt.Stringer
	isType()
}

// Kind is the numeric family of an atomic type.
type Kind uint8

const (
	KindInt Kind = iota
	KindUint
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ByteOrder is the declared byte order of an atomic type.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// Binary returns the encoding/binary order for o.
func (o ByteOrder) Binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "be"
	}
	return "le"
}

// Pad is the padding policy of a fixed-width string.
type Pad uint8

const (
	PadNullTerm Pad = iota
	PadNullPad
	PadSpacePad
)

func (p Pad) String() string {
	switch p {
	case PadNullPad:
		return "nullpad"
	case PadSpacePad:
		return "spacepad"
	default:
		return "nullterm"
	}
}

// Atomic is an integer or floating-point scalar.
type Atomic struct {
	Kind  Kind
	Width uint8
	Order ByteOrder
}

// Signed reports whether the atomic is a signed integer or a float.
func (a Atomic) Signed() bool { return a.Kind != KindUint }

func (a Atomic) Size() uint64 { return uint64(a.Width) }
func (Atomic) isType()        {}

// FixedString is a string stored inline in Width bytes.
type FixedString struct {
	Width uint32
	Pad   Pad
}

func (s FixedString) Size() uint64 { return uint64(s.Width) }
func (FixedString) isType()        {}

// VarString is a variable-length string. The buffer holds a Width-byte
// handle that the storage layer dereferences.
type VarString struct {
	Width uint32
}

func (s VarString) Size() uint64 { return uint64(s.Width) }
func (VarString) isType()        {}

// FixedArray is a row-major array of Base with the given dimensions.
type FixedArray struct {
	Base Type
	Dims []uint64
}

// Size returns count*base size. Overflow is reported by Validate; Size
// saturates so that an unvalidated descriptor never wraps around.
func (a FixedArray) Size() uint64 {
	n, err := ResolveArrayElementCount(a)
	if err != nil || a.Base == nil {
		return 0
	}
	bs := a.Base.Size()
	if bs != 0 && n > ^uint64(0)/bs {
		return ^uint64(0)
	}
	return n * bs
}

func (FixedArray) isType() {}

// Member is one named field of a Record.
type Member struct {
	Name   string
	Offset uint64
	Type   Type
}

// Record is a compound type. Width is the total instance size declared by
// the storage layer, not derived from the members.
type Record struct {
	Width   uint64
	Members []Member
}

// NewRecord builds a Record of the declared width.
func NewRecord(width uint64, members ...Member) Record {
	return Record{Width: width, Members: members}
}

func (r Record) Size() uint64 { return r.Width }
func (Record) isType()        {}

// Member returns the member with the given name.
func (r Record) Member(name string) (Member, bool) {
	for _, m := range r.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Class names a storage class that has no value representation.
type Class string

const (
	ClassTime      Class = "time"
	ClassBitfield  Class = "bitfield"
	ClassOpaque    Class = "opaque"
	ClassReference Class = "reference"
	ClassEnum      Class = "enum"
	ClassVarLen    Class = "vlen"
)

// Unsupported stands in for a stored kind the decoder cannot represent.
// It still occupies Width bytes so that sibling offsets stay valid.
type Unsupported struct {
	Class Class
	Width uint64
}

func (u Unsupported) Size() uint64 { return u.Width }
func (Unsupported) isType()        {}

// Walk visits t and its descendants depth-first. Returning false from fn
// stops the walk below the current node.
func Walk(t Type, fn func(Type) bool) {
	if t == nil || !fn(t) {
		return
	}
	switch v := t.(type) {
	case FixedArray:
		Walk(v.Base, fn)
	case Record:
		for _, m := range v.Members {
			Walk(m.Type, fn)
		}
	}
}

// HasVarString reports whether t contains a variable-length string.
func HasVarString(t Type) bool {
	found := false
	Walk(t, func(n Type) bool {
		if _, ok := n.(VarString); ok {
			found = true
		}
		return !found
	})
	return found
}

// IsSupported reports whether values of t can be decoded at all.
// A FixedArray of an unsupported base is itself unsupported.
func IsSupported(t Type) bool {
	switch v := t.(type) {
	case Unsupported:
		return false
	case FixedArray:
		return IsSupported(v.Base)
	default:
		return t != nil
	}
}

// Depth returns the nesting depth of t. Atomic and string types have depth
// zero; each enclosing array or record adds one.
func Depth(t Type) int {
	switch v := t.(type) {
	case FixedArray:
		return 1 + Depth(v.Base)
	case Record:
		d := 0
		for _, m := range v.Members {
			d = max(d, Depth(m.Type))
		}
		return 1 + d
	default:
		return 0
	}
}
