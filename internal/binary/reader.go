// Package binary decodes the fixed and file-sized integer fields of HDF5
// structures from an io.ReaderAt.
package binary

import (
	"encoding/binary"
	"io"
)

// Config describes how a file encodes its fields. Offset and length sizes
// come from the superblock and are 2, 4 or 8 bytes. A nil ByteOrder means
// little-endian.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// Reader is a cursor over an io.ReaderAt. Readers made with At share the
// source but not the position.
type Reader struct {
	src io.ReaderAt
	cfg Config
	pos int64
}

// NewReader returns a reader positioned at the start of src.
func NewReader(src io.ReaderAt, cfg Config) *Reader {
	if cfg.ByteOrder == nil {
		cfg.ByteOrder = binary.LittleEndian
	}
	return &Reader{src: src, cfg: cfg}
}

// At returns a reader positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{src: r.src, cfg: r.cfg, pos: offset}
}

func (r *Reader) Pos() int64 { return r.pos }

func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

func (r *Reader) ByteOrder() binary.ByteOrder { return r.cfg.ByteOrder }

// Skip moves the position n bytes forward.
func (r *Reader) Skip(n int64) { r.pos += n }

// Align moves the position up to a multiple of n.
func (r *Reader) Align(n int64) {
	if n > 1 {
		r.pos = (r.pos + n - 1) / n * n
	}
}

// fill reads len(p) bytes at the position without moving it. A full read
// that also reports io.EOF succeeds.
func (r *Reader) fill(p []byte) error {
	n, err := r.src.ReadAt(p, r.pos)
	if n == len(p) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// Peek returns the next n bytes without consuming them.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := r.fill(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBytes consumes the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf, err := r.Peek(n)
	if err == nil {
		r.pos += int64(len(buf))
	}
	return buf, err
}

// ReadInto consumes len(p) bytes into p.
func (r *Reader) ReadInto(p []byte) error {
	if err := r.fill(p); err != nil {
		return err
	}
	r.pos += int64(len(p))
	return nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) { return r.ReadUintN(r.cfg.OffsetSize) }

// ReadLength reads a file-sized length.
func (r *Reader) ReadLength() (uint64, error) { return r.ReadUintN(r.cfg.LengthSize) }

// ReadUintN reads an n-byte unsigned integer, n at most 8, in the
// reader's byte order.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	var buf [8]byte
	if err := r.ReadInto(buf[:n]); err != nil {
		return 0, err
	}
	var v uint64
	if r.cfg.ByteOrder == binary.BigEndian {
		for _, b := range buf[:n] {
			v = v<<8 | uint64(b)
		}
		return v, nil
	}
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// IsUndefinedOffset reports whether offset is the all-ones address HDF5
// uses for storage that was never allocated.
func (r *Reader) IsUndefinedOffset(offset uint64) bool {
	if r.cfg.OffsetSize >= 8 {
		return offset == ^uint64(0)
	}
	return offset == 1<<(8*r.cfg.OffsetSize)-1
}
