package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-h5dap/internal/binary"
)

// Signature opens every HDF5 superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// searchOffsets are the positions a superblock may start at once a user
// block is prepended.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// Superblock holds the file-wide parameters needed to read everything else.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	BaseAddress      uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// Cached by version 0 and 1 files in the root symbol table entry;
	// zero when absent.
	RootGroupBTreeAddress     uint64
	RootGroupLocalHeapAddress uint64

	ByteOrder  binary.ByteOrder
	FileOffset int64
}

// Read finds the superblock signature and decodes the superblock after it.
func Read(r io.ReaderAt) (*Superblock, error) {
	head := make([]byte, len(Signature)+1)
	for _, off := range searchOffsets {
		n, err := r.ReadAt(head, off)
		if n < len(head) {
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			continue
		}
		if !bytes.Equal(head[:len(Signature)], Signature) {
			continue
		}

		var sb *Superblock
		switch version := head[len(Signature)]; version {
		case 0, 1:
			sb, err = readSymbolTableForm(r, off, version)
		case 2, 3:
			sb, err = readChecksummedForm(r, off, version)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = off
		sb.ByteOrder = binary.LittleEndian
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// ReaderConfig sizes a binary reader for this file.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  sb.ByteOrder,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

func (sb *Superblock) checkSizes() error {
	for _, s := range []uint8{sb.OffsetSize, sb.LengthSize} {
		if s != 2 && s != 4 && s != 8 {
			return fmt.Errorf("%w: field size %d", ErrInvalidSuperblock, s)
		}
	}
	return nil
}

// readSymbolTableForm decodes a version 0 or 1 superblock. Version 1 adds
// the indexed storage K and two reserved bytes before the addresses.
func readSymbolTableForm(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 16)
	if err := readAt(r, head, off); err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: head[13], LengthSize: head[14]}
	if err := sb.checkSizes(); err != nil {
		return nil, err
	}

	start := 24
	if version == 1 {
		start = 28
	}
	o := int(sb.OffsetSize)
	// Four addresses, then the root entry: link name offset, header
	// address, cache type, reserved and a 16-byte scratch pad.
	buf := make([]byte, start+6*o+24)
	if err := readAt(r, buf, off); err != nil {
		return nil, err
	}
	f := fields{buf: buf, pos: start, size: o}
	sb.BaseAddress = f.addr()
	f.skip(o) // free-space info
	sb.EOFAddress = f.addr()
	f.skip(o) // driver info
	f.skip(o) // root link name offset
	sb.RootGroupAddress = f.addr()
	if cache := f.uint32(); cache == 1 {
		f.skip(4)
		sb.RootGroupBTreeAddress = f.addr()
		sb.RootGroupLocalHeapAddress = f.addr()
	}
	return sb, nil
}

// readChecksummedForm decodes a version 2 or 3 superblock and verifies its
// lookup3 checksum.
func readChecksummedForm(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 12)
	if err := readAt(r, head, off); err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: head[9], LengthSize: head[10]}
	if err := sb.checkSizes(); err != nil {
		return nil, err
	}

	o := int(sb.OffsetSize)
	buf := make([]byte, 12+4*o+4)
	if err := readAt(r, buf, off); err != nil {
		return nil, err
	}
	body := buf[:len(buf)-4]
	if binary.LittleEndian.Uint32(buf[len(body):]) != binpkg.Lookup3Checksum(body) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}
	f := fields{buf: buf, pos: 12, size: o}
	sb.BaseAddress = f.addr()
	f.skip(o) // superblock extension
	sb.EOFAddress = f.addr()
	sb.RootGroupAddress = f.addr()
	return sb, nil
}

func readAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: truncated at offset %d", ErrInvalidSuperblock, off)
	}
	return err
}

// fields walks little-endian superblock fields.
type fields struct {
	buf  []byte
	pos  int
	size int
}

func (f *fields) skip(n int) { f.pos += n }

func (f *fields) addr() uint64 {
	b := f.buf[f.pos : f.pos+f.size]
	f.pos += f.size
	switch f.size {
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

func (f *fields) uint32() uint32 {
	v := binary.LittleEndian.Uint32(f.buf[f.pos:])
	f.pos += 4
	return v
}
