package h5test

import "encoding/binary"

// Dataspace encodes a simple dataspace; no dims means a scalar.
func Dataspace(dims ...uint64) Message {
	return Message{Type: TypeDataspace, Data: dataspace(dims)}
}

// NullDataspace encodes a dataspace with no elements.
func NullDataspace() Message {
	return Message{Type: TypeDataspace, Data: []byte{2, 0, 0, 2}}
}

func dataspace(dims []uint64) []byte {
	data := make([]byte, 8+8*len(dims))
	data[0] = 1
	data[1] = byte(len(dims))
	for i, d := range dims {
		binary.LittleEndian.PutUint64(data[8+8*i:], d)
	}
	return data
}

// Datatype wraps an encoded type as a datatype message.
func Datatype(t []byte) Message {
	return Message{Type: TypeDatatype, Data: t}
}

func typeHeader(class, version byte, bits uint32, size uint32) []byte {
	h := make([]byte, 8)
	h[0] = version<<4 | class
	h[1] = byte(bits)
	h[2] = byte(bits >> 8)
	h[3] = byte(bits >> 16)
	binary.LittleEndian.PutUint32(h[4:], size)
	return h
}

// Int encodes a little-endian integer type.
func Int(size uint32, signed bool) []byte {
	var bits uint32
	if signed {
		bits |= 0x08
	}
	return fixedPoint(size, bits)
}

// BigEndianInt encodes a big-endian integer type.
func BigEndianInt(size uint32, signed bool) []byte {
	bits := uint32(0x01)
	if signed {
		bits |= 0x08
	}
	return fixedPoint(size, bits)
}

func fixedPoint(size, bits uint32) []byte {
	t := typeHeader(0, 1, bits, size)
	props := make([]byte, 4)
	binary.LittleEndian.PutUint16(props[2:], uint16(size*8))
	return append(t, props...)
}

// Float encodes a little-endian IEEE float type of 4 or 8 bytes.
func Float(size uint32) []byte {
	t := typeHeader(1, 1, 0x20, size)
	props := make([]byte, 12)
	binary.LittleEndian.PutUint16(props[2:], uint16(size*8))
	return append(t, props...)
}

// String encodes a fixed-width string type. pad is 0 (null-terminated),
// 1 (null-padded) or 2 (space-padded).
func String(size uint32, pad byte) []byte {
	return typeHeader(3, 1, uint32(pad), size)
}

// VarString encodes a variable-length string type.
func VarString() []byte {
	t := typeHeader(9, 1, 0x01, 16)
	return append(t, Int(1, false)...)
}

// Opaque encodes an opaque type with an empty tag.
func Opaque(size uint32) []byte {
	return append(typeHeader(5, 1, 8, size), make([]byte, 8)...)
}

// Field is a member of a compound type.
type Field struct {
	Name   string
	Offset uint32
	Type   []byte

	// Dims makes a version 1 compound member an array of Type.
	Dims []uint32
}

// Compound encodes a version 3 compound type of size bytes.
func Compound(size uint32, fields ...Field) []byte {
	t := typeHeader(6, 3, uint32(len(fields)), size)
	for _, f := range fields {
		t = append(t, f.Name...)
		t = append(t, 0)
		off := make([]byte, 4)
		binary.LittleEndian.PutUint32(off, f.Offset)
		t = append(t, off[:offsetWidth(size)]...)
		t = append(t, f.Type...)
	}
	return t
}

// CompoundV1 encodes a version 1 compound type, as written by default.
func CompoundV1(size uint32, fields ...Field) []byte {
	t := typeHeader(6, 1, uint32(len(fields)), size)
	for _, f := range fields {
		t = append(t, pad8(append([]byte(f.Name), 0))...)
		member := make([]byte, 32)
		binary.LittleEndian.PutUint32(member, f.Offset)
		member[4] = byte(len(f.Dims))
		for i, d := range f.Dims {
			binary.LittleEndian.PutUint32(member[16+4*i:], d)
		}
		t = append(t, member...)
		t = append(t, f.Type...)
	}
	return t
}

func offsetWidth(size uint32) int {
	switch {
	case size <= 0xFF:
		return 1
	case size <= 0xFFFF:
		return 2
	case size <= 0xFFFFFF:
		return 3
	}
	return 4
}

// Array encodes a version 3 array type.
func Array(base []byte, dims ...uint32) []byte {
	size := binary.LittleEndian.Uint32(base[4:])
	props := []byte{byte(len(dims))}
	for _, d := range dims {
		size *= d
		props = binary.LittleEndian.AppendUint32(props, d)
	}
	t := typeHeader(10, 3, 0, size)
	t = append(t, props...)
	return append(t, base...)
}

// ArrayV2 encodes a version 2 array type, which carries permutation
// indices.
func ArrayV2(base []byte, dims ...uint32) []byte {
	size := binary.LittleEndian.Uint32(base[4:])
	props := []byte{byte(len(dims)), 0, 0, 0}
	for _, d := range dims {
		size *= d
		props = binary.LittleEndian.AppendUint32(props, d)
	}
	for i := range dims {
		props = binary.LittleEndian.AppendUint32(props, uint32(i))
	}
	t := typeHeader(10, 2, 0, size)
	t = append(t, props...)
	return append(t, base...)
}

// Enum encodes a version 3 enum over base whose members take the values
// 0..len(names)-1.
func Enum(base []byte, names ...string) []byte {
	size := binary.LittleEndian.Uint32(base[4:])
	t := typeHeader(8, 3, uint32(len(names)), size)
	t = append(t, base...)
	for _, n := range names {
		t = append(t, n...)
		t = append(t, 0)
	}
	for i := range names {
		v := make([]byte, size)
		v[0] = byte(i)
		t = append(t, v...)
	}
	return t
}

// EnumV1 encodes a version 1 enum, whose member names are each padded to
// a multiple of 8 bytes.
func EnumV1(base []byte, names ...string) []byte {
	size := binary.LittleEndian.Uint32(base[4:])
	t := typeHeader(8, 1, uint32(len(names)), size)
	t = append(t, base...)
	for _, n := range names {
		t = append(t, pad8(append([]byte(n), 0))...)
	}
	for i := range names {
		v := make([]byte, size)
		v[0] = byte(i)
		t = append(t, v...)
	}
	return t
}

// Compact encodes a compact layout holding data.
func Compact(data []byte) Message {
	l := []byte{3, 0, 0, 0}
	binary.LittleEndian.PutUint16(l[2:], uint16(len(data)))
	return Message{Type: TypeDataLayout, Data: append(l, data...)}
}

// Contiguous encodes a contiguous layout of size bytes at addr.
func Contiguous(addr, size uint64) Message {
	l := make([]byte, 18)
	l[0] = 3
	l[1] = 1
	binary.LittleEndian.PutUint64(l[2:], addr)
	binary.LittleEndian.PutUint64(l[10:], size)
	return Message{Type: TypeDataLayout, Data: l}
}

// Unallocated encodes a contiguous layout whose storage was never
// written.
func Unallocated(size uint64) Message {
	return Contiguous(undefined, size)
}

// Chunked encodes a one-dimensional chunked layout of 1-byte elements
// with no index written yet.
func Chunked(chunk uint32) Message {
	l := []byte{3, 2, 2} // version, class, rank+1
	l = binary.LittleEndian.AppendUint64(l, undefined)
	l = binary.LittleEndian.AppendUint32(l, chunk)
	l = binary.LittleEndian.AppendUint32(l, 1)
	return Message{Type: TypeDataLayout, Data: l}
}

// Deflate encodes a filter pipeline with one deflate filter.
func Deflate(level uint32) Message {
	f := []byte{2, 1}
	f = binary.LittleEndian.AppendUint16(f, 1) // filter id
	f = binary.LittleEndian.AppendUint16(f, 0) // flags
	f = binary.LittleEndian.AppendUint16(f, 1) // client values
	f = binary.LittleEndian.AppendUint32(f, level)
	return Message{Type: TypeFilter, Data: f}
}

// Fill encodes a defined fill value.
func Fill(value []byte) Message {
	f := []byte{2, 1, 0, 1, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(f[4:], uint32(len(value)))
	return Message{Type: TypeFillValue, Data: append(f, value...)}
}

// HardLink encodes a link message to the object header at addr.
func HardLink(name string, addr uint64) Message {
	l := []byte{1, 0, byte(len(name))}
	l = append(l, name...)
	l = binary.LittleEndian.AppendUint64(l, addr)
	return Message{Type: TypeLink, Data: l}
}

// SoftLink encodes a link message to target, absolute or relative to
// the group holding the link.
func SoftLink(name, target string) Message {
	l := []byte{1, 0x08, 1, byte(len(name))}
	l = append(l, name...)
	l = binary.LittleEndian.AppendUint16(l, uint16(len(target)))
	l = append(l, target...)
	return Message{Type: TypeLink, Data: l}
}

// ExternalLink encodes a link message to path inside another file.
func ExternalLink(name, file, path string) Message {
	l := []byte{1, 0x08, 64, byte(len(name))}
	l = append(l, name...)
	info := append([]byte{0}, file...)
	info = append(info, 0)
	info = append(info, path...)
	info = append(info, 0)
	l = binary.LittleEndian.AppendUint16(l, uint16(len(info)))
	return Message{Type: TypeLink, Data: append(l, info...)}
}

// Attribute encodes a version 3 attribute; no dims means a scalar.
func Attribute(name string, t []byte, data []byte, dims ...uint64) Message {
	space := dataspace(dims)
	a := []byte{3, 0}
	a = binary.LittleEndian.AppendUint16(a, uint16(len(name)+1))
	a = binary.LittleEndian.AppendUint16(a, uint16(len(t)))
	a = binary.LittleEndian.AppendUint16(a, uint16(len(space)))
	a = append(a, 0) // ASCII
	a = append(a, name...)
	a = append(a, 0)
	a = append(a, t...)
	a = append(a, space...)
	return Message{Type: TypeAttribute, Data: append(a, data...)}
}
