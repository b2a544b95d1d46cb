package heap

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
)

// LocalHeap is the data segment of a local heap.
type LocalHeap struct {
	DataSize uint64
	data     []byte
}

// ReadLocalHeap reads the heap whose header is at address along with its
// data segment.
func ReadLocalHeap(r *binary.Reader, address uint64) (*LocalHeap, error) {
	hr := r.At(int64(address))
	if err := expectSignature(hr, "HEAP", "local heap"); err != nil {
		return nil, err
	}
	if err := expectVersion(hr, 0, "local heap"); err != nil {
		return nil, err
	}
	hr.Skip(3)

	size, err := hr.ReadLength()
	if err != nil {
		return nil, fmt.Errorf("reading local heap size: %w", err)
	}
	// Free list head; names never live in free space.
	if _, err := hr.ReadLength(); err != nil {
		return nil, fmt.Errorf("reading local heap free list: %w", err)
	}
	dataAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, fmt.Errorf("reading local heap data address: %w", err)
	}

	data, err := r.At(int64(dataAddr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading local heap data at %d: %w", dataAddr, err)
	}
	return &LocalHeap{DataSize: size, data: data}, nil
}

// GetString returns the string starting at offset, or "" past the end of
// the heap.
func (h *LocalHeap) GetString(offset uint64) string {
	if offset >= uint64(len(h.data)) {
		return ""
	}
	return cString(h.data[offset:])
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func expectSignature(r *binary.Reader, want, what string) error {
	sig, err := r.ReadBytes(len(want))
	if err != nil {
		return fmt.Errorf("reading %s signature: %w", what, err)
	}
	if string(sig) != want {
		return fmt.Errorf("invalid %s signature %q, want %q", what, sig, want)
	}
	return nil
}

func expectVersion(r *binary.Reader, want uint8, what string) error {
	v, err := r.ReadUint8()
	if err != nil {
		return fmt.Errorf("reading %s version: %w", what, err)
	}
	if v != want {
		return fmt.Errorf("unsupported %s version %d", what, v)
	}
	return nil
}
