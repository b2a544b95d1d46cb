package heap

import (
	"bytes"
	stdbinary "encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
)

// maxCollectionSize bounds the allocation for one collection.
const maxCollectionSize = 1 << 30

// GlobalHeap holds the objects of one global heap collection.
type GlobalHeap struct {
	CollectionSize uint64
	objects        map[uint16][]byte
}

// GlobalHeapID locates an object inside a collection.
type GlobalHeapID struct {
	CollectionAddress uint64
	ObjectIndex       uint32
}

// ReadGlobalHeap reads the collection at address. Objects are read up to
// the free-space object, which has index 0.
func ReadGlobalHeap(r *binary.Reader, address uint64) (*GlobalHeap, error) {
	if address == 0 || r.IsUndefinedOffset(address) {
		return nil, fmt.Errorf("invalid global heap address %#x", address)
	}
	hr := r.At(int64(address))
	if err := expectSignature(hr, "GCOL", "global heap"); err != nil {
		return nil, err
	}
	if err := expectVersion(hr, 1, "global heap"); err != nil {
		return nil, err
	}
	hr.Skip(3)

	size, err := hr.ReadLength()
	if err != nil {
		return nil, fmt.Errorf("reading global heap size: %w", err)
	}
	header := uint64(8 + r.LengthSize())
	if size < header || size > maxCollectionSize {
		return nil, fmt.Errorf("global heap collection at %#x has invalid size %d", address, size)
	}
	body, err := hr.ReadBytes(int(size - header))
	if err != nil {
		return nil, fmt.Errorf("reading global heap collection at %#x: %w", address, err)
	}

	gh := &GlobalHeap{CollectionSize: size, objects: make(map[uint16][]byte)}
	br := binary.NewReader(bytes.NewReader(body), binary.Config{
		ByteOrder:  r.ByteOrder(),
		OffsetSize: r.OffsetSize(),
		LengthSize: r.LengthSize(),
	})
	for {
		index, err := br.ReadUint16()
		if err != nil || index == 0 {
			break
		}
		br.Skip(6) // reference count and reserved
		n, err := br.ReadLength()
		if err != nil {
			break
		}
		if n > uint64(len(body)) {
			return nil, fmt.Errorf("global heap object %d of %d bytes overruns its collection", index, n)
		}
		data, err := br.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("global heap object %d overruns its collection: %w", index, err)
		}
		gh.objects[index] = data
		br.Skip(int64(-n & 7))
	}
	return gh, nil
}

// GetObject returns a copy of the object with the given index.
func (h *GlobalHeap) GetObject(index uint16) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("nil global heap")
	}
	data, ok := h.objects[index]
	if !ok {
		return nil, fmt.Errorf("object index %d not found in global heap", index)
	}
	return bytes.Clone(data), nil
}

// GetString returns the object with the given index up to its first NUL.
func (h *GlobalHeap) GetString(index uint16) (string, error) {
	data, err := h.GetObject(index)
	if err != nil {
		return "", err
	}
	return cString(data), nil
}

// ParseGlobalHeapID decodes a little-endian collection address of
// offsetSize bytes followed by a 4-byte object index.
func ParseGlobalHeapID(data []byte, offsetSize int) (GlobalHeapID, error) {
	switch offsetSize {
	case 2, 4, 8:
	default:
		return GlobalHeapID{}, fmt.Errorf("unsupported offset size: %d", offsetSize)
	}
	if len(data) < offsetSize+4 {
		return GlobalHeapID{}, fmt.Errorf("global heap ID too short: need %d bytes, have %d", offsetSize+4, len(data))
	}
	var addr uint64
	for i := offsetSize - 1; i >= 0; i-- {
		addr = addr<<8 | uint64(data[i])
	}
	return GlobalHeapID{
		CollectionAddress: addr,
		ObjectIndex:       stdbinary.LittleEndian.Uint32(data[offsetSize:]),
	}, nil
}
