package message

import "fmt"

// DatatypeClass is the class of an HDF5 datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

// ByteOrder is the byte order of a numeric type.
type ByteOrder uint8

const (
	OrderLE   ByteOrder = 0
	OrderBE   ByteOrder = 1
	OrderVAX  ByteOrder = 2
	OrderNone ByteOrder = 3
)

// StringPadding is how a fixed-width string fills unused bytes.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet is the encoding of string data.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype describes the layout of one element.
type Datatype struct {
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32
	ByteOrder ByteOrder

	// Fixed-point.
	BitOffset    uint16
	BitPrecision uint16
	Signed       bool

	// Strings, fixed and variable-length.
	StringPadding StringPadding
	CharSet       CharacterSet

	Members []CompoundMember

	// ArrayDims and BaseType describe an array element.
	ArrayDims []uint32
	BaseType  *Datatype

	VarLenType     *Datatype
	IsVarLenString bool

	// Properties holds the class-specific encoding that follows the
	// 8-byte type header.
	Properties []byte
}

// CompoundMember is a named field of a compound type.
type CompoundMember struct {
	Name       string
	ByteOffset uint32
	Type       *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// maxCompoundV1Dims is the number of dimension slots in a version 1
// compound member.
const maxCompoundV1Dims = 4

// datatype decodes an encoded type. Types nest, so the encoding may be
// followed by unrelated bytes.
func (p *payload) datatype() *Datatype {
	classVersion := p.u8()
	bits := uint32(p.uint(3))
	dt := &Datatype{
		Class:     DatatypeClass(classVersion & 0x0F),
		ClassBits: bits,
		Size:      p.u32(),
	}
	version := classVersion >> 4
	start := p.pos
	if p.err != nil {
		return nil
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(bits & 0x01)
		dt.Signed = bits&0x08 != 0
		dt.BitOffset = p.u16()
		dt.BitPrecision = p.u16()

	case ClassFloatPoint:
		// Bit 6 with bit 0 marks VAX order.
		dt.ByteOrder = ByteOrder(bits & 0x01)
		if bits&0x41 == 0x41 {
			dt.ByteOrder = OrderVAX
		}
		p.skip(12)

	case ClassTime:
		dt.ByteOrder = ByteOrder(bits & 0x01)
		p.skip(2)

	case ClassString:
		dt.StringPadding = StringPadding(bits & 0x0F)
		dt.CharSet = CharacterSet((bits >> 4) & 0x0F)

	case ClassOpaque:
		// The low bits hold the tag length, already padded to 8.
		p.skip(int(bits & 0xFF))

	case ClassReference:

	case ClassCompound:
		n := int(bits & 0xFFFF)
		for i := 0; i < n && p.err == nil; i++ {
			dt.Members = append(dt.Members, p.member(version, dt.Size))
		}

	case ClassEnum:
		base := p.datatype()
		if base == nil {
			return nil
		}
		n := int(bits & 0xFFFF)
		for j := 0; j < n; j++ {
			// Older versions pad each name, measured from its first byte.
			nameStart := p.pos
			p.cstring()
			if version < 3 {
				p.pad(nameStart, 8)
			}
		}
		p.skip(n * int(base.Size))

	case ClassArray:
		rank := int(p.u8())
		if version < 3 {
			p.skip(3)
		}
		dt.ArrayDims = make([]uint32, rank)
		for i := range dt.ArrayDims {
			dt.ArrayDims[i] = p.u32()
		}
		if version < 3 {
			p.skip(4 * rank) // permutation, never used
		}
		dt.BaseType = p.datatype()

	case ClassVarLen:
		dt.IsVarLenString = bits&0x0F == 1
		dt.StringPadding = StringPadding((bits >> 4) & 0x0F)
		dt.CharSet = CharacterSet((bits >> 8) & 0x0F)
		dt.VarLenType = p.datatype()

	default:
		p.failf("unknown datatype class %d", dt.Class)
	}

	if p.err != nil {
		return nil
	}
	dt.Properties = p.data[start:p.pos:p.pos]
	return dt
}

func (p *payload) member(version uint8, compoundSize uint32) CompoundMember {
	nameStart := p.pos
	m := CompoundMember{Name: p.cstring()}
	if version < 3 {
		p.pad(nameStart, 8)
	}

	// Version 3 sizes the offset by the compound's size.
	width := 4
	if version >= 3 {
		width = 1
		for width < 4 && compoundSize >= 1<<(8*width) {
			width++
		}
	}
	m.ByteOffset = uint32(p.uint(width))

	// Version 1 members carry a dimensionality, a permutation and four
	// dimension sizes. A non-zero dimensionality makes the member an
	// array of its type.
	var dims []uint32
	if version == 1 {
		rank := int(p.u8())
		p.skip(11)
		slots := make([]uint32, maxCompoundV1Dims)
		for i := range slots {
			slots[i] = p.u32()
		}
		if rank > maxCompoundV1Dims {
			p.failf("compound member %q has %d dimensions", m.Name, rank)
			return m
		}
		dims = slots[:rank]
	}

	m.Type = p.datatype()
	if m.Type != nil && len(dims) > 0 {
		size := m.Type.Size
		for _, d := range dims {
			size *= d
		}
		m.Type = &Datatype{Class: ClassArray, Size: size, ArrayDims: dims, BaseType: m.Type}
	}
	if p.err != nil {
		p.err = fmt.Errorf("compound member %q: %w", m.Name, p.err)
	}
	return m
}
