package h5file

import (
	"fmt"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/internal/message"
)

// describe converts a parsed datatype message into a type descriptor.
// Classes with no value representation become dtype.Unsupported so that a
// record holding them keeps its member offsets.
func describe(dt *message.Datatype) (dtype.Type, error) {
	if dt == nil {
		return nil, fmt.Errorf("missing datatype")
	}
	width := uint64(dt.Size)

	switch dt.Class {
	case message.ClassFixedPoint:
		order, ok := byteOrder(dt.ByteOrder)
		if !ok || !atomicWidth(width) {
			return dtype.Unsupported{Class: dtype.Class(fmt.Sprintf("int%d", width*8)), Width: width}, nil
		}
		kind := dtype.KindUint
		if dt.Signed {
			kind = dtype.KindInt
		}
		return dtype.Atomic{Kind: kind, Width: uint8(width), Order: order}, nil

	case message.ClassFloatPoint:
		order, ok := byteOrder(dt.ByteOrder)
		if !ok || (width != 4 && width != 8) {
			return dtype.Unsupported{Class: dtype.Class(fmt.Sprintf("float%d", width*8)), Width: width}, nil
		}
		return dtype.Atomic{Kind: dtype.KindFloat, Width: uint8(width), Order: order}, nil

	case message.ClassString:
		return dtype.FixedString{Width: dt.Size, Pad: padding(dt.StringPadding)}, nil

	case message.ClassVarLen:
		if dt.IsVarLenString {
			return dtype.VarString{Width: dt.Size}, nil
		}
		return dtype.Unsupported{Class: dtype.ClassVarLen, Width: width}, nil

	case message.ClassCompound:
		members := make([]dtype.Member, 0, len(dt.Members))
		for _, m := range dt.Members {
			t, err := describe(m.Type)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			members = append(members, dtype.Member{Name: m.Name, Offset: uint64(m.ByteOffset), Type: t})
		}
		return dtype.NewRecord(width, members...), nil

	case message.ClassArray:
		base, err := describe(dt.BaseType)
		if err != nil {
			return nil, fmt.Errorf("array base: %w", err)
		}
		dims := make([]uint64, len(dt.ArrayDims))
		for i, d := range dt.ArrayDims {
			dims[i] = uint64(d)
		}
		return dtype.FixedArray{Base: base, Dims: dims}, nil

	case message.ClassTime:
		return dtype.Unsupported{Class: dtype.ClassTime, Width: width}, nil
	case message.ClassBitfield:
		return dtype.Unsupported{Class: dtype.ClassBitfield, Width: width}, nil
	case message.ClassOpaque:
		return dtype.Unsupported{Class: dtype.ClassOpaque, Width: width}, nil
	case message.ClassReference:
		return dtype.Unsupported{Class: dtype.ClassReference, Width: width}, nil
	case message.ClassEnum:
		return dtype.Unsupported{Class: dtype.ClassEnum, Width: width}, nil
	}
	return nil, fmt.Errorf("unknown datatype class %d", dt.Class)
}

func byteOrder(o message.ByteOrder) (dtype.ByteOrder, bool) {
	switch o {
	case message.OrderLE:
		return dtype.LittleEndian, true
	case message.OrderBE:
		return dtype.BigEndian, true
	}
	return 0, false
}

func atomicWidth(w uint64) bool {
	return w == 1 || w == 2 || w == 4 || w == 8
}

func padding(p message.StringPadding) dtype.Pad {
	switch p {
	case message.PadNullPad:
		return dtype.PadNullPad
	case message.PadSpacePad:
		return dtype.PadSpacePad
	}
	return dtype.PadNullTerm
}
