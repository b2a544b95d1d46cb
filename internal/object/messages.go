package object

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/message"
)

// messageReader collects the messages of one header across its chunks.
type messageReader struct {
	r       *binary.Reader
	version uint8
	// ordered is set when version 2 frames carry a creation order.
	ordered  bool
	seen     map[uint64]bool
	messages []message.Message
}

// readV1 decodes the 16-byte version 1 prefix: version, reserved, message
// count, reference count, chunk size and alignment padding.
func (m *messageReader) readV1(address uint64) error {
	hr := m.r.At(int64(address))
	prefix, err := hr.ReadBytes(12)
	if err != nil {
		return fmt.Errorf("reading object header at %d: %w", address, err)
	}
	size := m.r.ByteOrder().Uint32(prefix[8:])
	hr.Align(8)
	return m.chunk(hr, hr.Pos()+int64(size))
}

// readV2 decodes the version 2 prefix. Chunk 0's size field excludes the
// trailing checksum.
func (m *messageReader) readV2(address uint64) error {
	hr := m.r.At(int64(address) + 4)
	version, err := hr.ReadUint8()
	if err != nil {
		return err
	}
	if version != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	flags, err := hr.ReadUint8()
	if err != nil {
		return err
	}
	if flags&0x20 != 0 {
		hr.Skip(16) // access, modification, change and birth times
	}
	if flags&0x10 != 0 {
		hr.Skip(4) // attribute phase change thresholds
	}
	size, err := hr.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return err
	}
	m.ordered = flags&0x04 != 0

	end := hr.Pos() + int64(size)
	if err := verifyChunk(m.r, int64(address), end); err != nil {
		return err
	}
	return m.chunk(hr, end)
}

func (m *messageReader) frameSize() int64 {
	switch {
	case m.version == 1:
		return 8
	case m.ordered:
		return 6
	}
	return 4
}

// chunk reads message frames from cr up to end. Fewer bytes than a frame
// header at the end of a chunk are padding.
func (m *messageReader) chunk(cr *binary.Reader, end int64) error {
	for end-cr.Pos() >= m.frameSize() {
		typ, flags, data, err := m.frame(cr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		switch typ {
		case message.TypeNIL:
		case message.TypeObjectHeaderContinuation:
			msg, err := message.Parse(typ, data, flags, m.r)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
			}
			c, ok := msg.(*message.Continuation)
			if !ok {
				return fmt.Errorf("%w: shared continuation message", ErrInvalidHeader)
			}
			if err := m.continuation(c); err != nil {
				return err
			}
		default:
			msg, err := message.Parse(typ, data, flags, m.r)
			if err != nil {
				continue
			}
			m.messages = append(m.messages, msg)
		}
	}
	return nil
}

func (m *messageReader) frame(cr *binary.Reader) (message.Type, uint8, []byte, error) {
	order := m.r.ByteOrder()
	hdr, err := cr.ReadBytes(int(m.frameSize()))
	if err != nil {
		return 0, 0, nil, err
	}
	var (
		typ   message.Type
		size  uint16
		flags uint8
	)
	if m.version == 1 {
		typ, size, flags = message.Type(order.Uint16(hdr)), order.Uint16(hdr[2:]), hdr[4]
	} else {
		typ, size, flags = message.Type(hdr[0]), order.Uint16(hdr[1:]), hdr[3]
	}
	data, err := cr.ReadBytes(int(size))
	if err != nil {
		return 0, 0, nil, err
	}
	if m.version == 1 {
		cr.Align(8)
	}
	return typ, flags, data, nil
}

func (m *messageReader) continuation(c *message.Continuation) error {
	if m.seen[c.Offset] {
		return fmt.Errorf("%w: continuation loop at %d", ErrInvalidHeader, c.Offset)
	}
	m.seen[c.Offset] = true

	cr := m.r.At(int64(c.Offset))
	end := int64(c.Offset + c.Length)
	if m.version == 2 {
		sig, err := cr.ReadBytes(4)
		if err != nil {
			return fmt.Errorf("reading continuation block at %d: %w", c.Offset, err)
		}
		if !bytes.Equal(sig, continuationSignature) {
			return fmt.Errorf("%w: continuation block signature %q", ErrInvalidHeader, sig)
		}
		end -= 4
		if err := verifyChunk(m.r, int64(c.Offset), end); err != nil {
			return err
		}
	}
	return m.chunk(cr, end)
}

// verifyChunk checks the lookup3 checksum stored at end against the bytes
// in [start, end).
func verifyChunk(r *binary.Reader, start, end int64) error {
	image, err := r.At(start).ReadBytes(int(end-start) + 4)
	if err != nil {
		return fmt.Errorf("reading object header chunk: %w", err)
	}
	n := len(image) - 4
	if !binary.VerifyLookup3(image[:n], r.ByteOrder().Uint32(image[n:])) {
		return fmt.Errorf("%w at address %d", ErrChecksumMismatch, start)
	}
	return nil
}
