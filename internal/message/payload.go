package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-h5dap/internal/binary"
)

// payload is a cursor over a message body. The first failed read is kept
// in err; every read after it returns a zero value.
type payload struct {
	what       string
	data       []byte
	pos        int
	order      binary.ByteOrder
	offsetSize int
	lengthSize int
	err        error
}

func newPayload(typ Type, data []byte, r *binpkg.Reader) *payload {
	return &payload{
		what:       typ.String(),
		data:       data,
		order:      r.ByteOrder(),
		offsetSize: r.OffsetSize(),
		lengthSize: r.LengthSize(),
	}
}

// sub consumes the next n bytes and returns a cursor over them.
func (p *payload) sub(n int) *payload {
	q := *p
	q.data, q.pos = p.bytes(n), 0
	return &q
}

func (p *payload) failf(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%s message: %s", p.what, fmt.Sprintf(format, args...))
	}
}

func (p *payload) left() int { return len(p.data) - p.pos }

// bytes consumes n bytes. The result aliases the message body.
func (p *payload) bytes(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || n > p.left() {
		p.failf("too short: need %d bytes at offset %d of %d", n, p.pos, len(p.data))
		p.pos = len(p.data)
		return nil
	}
	b := p.data[p.pos : p.pos+n : p.pos+n]
	p.pos += n
	return b
}

func (p *payload) skip(n int) { p.bytes(n) }

// rest consumes and copies the remaining bytes.
func (p *payload) rest() []byte {
	if p.left() <= 0 {
		return nil
	}
	return bytes.Clone(p.bytes(p.left()))
}

func (p *payload) u8() uint8 {
	if b := p.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (p *payload) u16() uint16 { return uint16(p.uint(2)) }

func (p *payload) u32() uint32 { return uint32(p.uint(4)) }

func (p *payload) addr() uint64 { return p.uint(p.offsetSize) }

func (p *payload) length() uint64 { return p.uint(p.lengthSize) }

// uint reads an n-byte unsigned integer, n at most 8.
func (p *payload) uint(n int) uint64 {
	b := p.bytes(n)
	var v uint64
	if p.order == binary.BigEndian {
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// cstring consumes a NUL-terminated string and its terminator.
func (p *payload) cstring() string {
	if p.err != nil {
		return ""
	}
	i := bytes.IndexByte(p.data[p.pos:], 0)
	if i < 0 {
		p.failf("string at offset %d not terminated", p.pos)
		p.pos = len(p.data)
		return ""
	}
	s := string(p.data[p.pos : p.pos+i])
	p.pos += i + 1
	return s
}

// field consumes an n-byte field holding a NUL-padded string.
func (p *payload) field(n int) string {
	b := p.bytes(n)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// pad skips to the next multiple of n bytes counted from start. Padding
// missing at the end of the body is tolerated.
func (p *payload) pad(start, n int) {
	if p.err != nil {
		return
	}
	p.pos = min(start+align(p.pos-start, n), len(p.data))
}

func align(v, n int) int {
	return (v + n - 1) / n * n
}
