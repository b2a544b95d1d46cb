package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-h5dap/internal/binary"
)

// Type is a header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeExternalDataFiles        Type = 0x0007
	TypeDataLayout               Type = 0x0008
	TypeBogus                    Type = 0x0009
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectComment            Type = 0x000D
	TypeObjectModTime            Type = 0x000E
	TypeSharedMessageTable       Type = 0x000F
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeObjectModTimeOld         Type = 0x0012
	TypeBTreeKValues             Type = 0x0013
	TypeDriverInfo               Type = 0x0014
	TypeAttributeInfo            Type = 0x0015
	TypeObjectRefCount           Type = 0x0016
)

var typeNames = map[Type]string{
	TypeNIL:                      "nil",
	TypeDataspace:                "dataspace",
	TypeLinkInfo:                 "link info",
	TypeDatatype:                 "datatype",
	TypeFillValue:                "fill value",
	TypeLink:                     "link",
	TypeDataLayout:               "data layout",
	TypeGroupInfo:                "group info",
	TypeFilterPipeline:           "filter pipeline",
	TypeAttribute:                "attribute",
	TypeObjectModTime:            "modification time",
	TypeObjectHeaderContinuation: "continuation",
	TypeSymbolTable:              "symbol table",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type 0x%04x", uint16(t))
}

// flagShared marks a message whose body refers to a copy stored elsewhere.
const flagShared = 0x02

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Parse decodes one header message. Types this package does not decode,
// and shared messages, come back as *Unknown.
func Parse(typ Type, data []byte, flags uint8, r *binpkg.Reader) (Message, error) {
	if flags&flagShared != 0 {
		return &Unknown{typ: typ}, nil
	}
	p := newPayload(typ, data, r)
	var m Message
	switch typ {
	case TypeDataspace:
		m = p.dataspace()
	case TypeDatatype:
		m = p.datatype()
	case TypeDataLayout:
		m = p.dataLayout()
	case TypeFilterPipeline:
		m = p.filterPipeline()
	case TypeFillValue:
		m = p.fillValue()
	case TypeAttribute:
		m = p.attribute()
	case TypeLink:
		m = p.link()
	case TypeSymbolTable:
		m = &SymbolTable{BTreeAddress: p.addr(), LocalHeapAddress: p.addr()}
	case TypeObjectHeaderContinuation:
		m = &Continuation{Offset: p.addr(), Length: p.length()}
	default:
		return &Unknown{typ: typ}, nil
	}
	if p.err != nil {
		return nil, p.err
	}
	return m, nil
}

// Unknown stands in for a message that was not decoded.
type Unknown struct {
	typ Type
}

func (m *Unknown) Type() Type { return m.typ }

// Continuation locates the next block of an object header's messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// SymbolTable points at the B-tree and local heap of an old-style group.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }
