package heap

import (
	"bytes"
	stdbinary "encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/h5test"
)

func fileReader(b *h5test.Builder) *binary.Reader {
	data := b.Bytes(b.Object())
	return binary.NewReader(bytes.NewReader(data), binary.Config{
		ByteOrder:  stdbinary.LittleEndian,
		OffsetSize: 8,
		LengthSize: 8,
	})
}

func TestLocalHeapNames(t *testing.T) {
	b := h5test.New()
	_, heapAddr := b.SymbolTable(
		h5test.LegacyEntry{Name: "alpha", Addr: 1},
		h5test.LegacyEntry{Name: "a_much_longer_name", Addr: 2},
	)
	h, err := ReadLocalHeap(fileReader(b), heapAddr)
	require.NoError(t, err)

	// Names are interned after an 8-byte empty slot, each padded to 8.
	assert.Equal(t, "", h.GetString(0))
	assert.Equal(t, "alpha", h.GetString(8))
	assert.Equal(t, "a_much_longer_name", h.GetString(16))
	assert.Equal(t, "much_longer_name", h.GetString(18))
	assert.Equal(t, "", h.GetString(h.DataSize))
	assert.Equal(t, uint64(40), h.DataSize)
}

func TestLocalHeapUnterminated(t *testing.T) {
	h := &LocalHeap{data: []byte("tail")}
	assert.Equal(t, "tail", h.GetString(0))
	assert.Equal(t, "il", h.GetString(2))
}

func TestReadLocalHeapErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(heap []byte)
		want   string
	}{
		{"signature", func(heap []byte) { copy(heap, "PAEH") }, "signature"},
		{"version", func(heap []byte) { heap[4] = 1 }, "version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := h5test.New()
			_, heapAddr := b.SymbolTable(h5test.LegacyEntry{Name: "x", Addr: 1})
			data := b.Bytes(b.Object())
			tt.mutate(data[heapAddr:])
			r := binary.NewReader(bytes.NewReader(data), binary.Config{
				ByteOrder: stdbinary.LittleEndian, OffsetSize: 8, LengthSize: 8,
			})
			_, err := ReadLocalHeap(r, heapAddr)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestGlobalHeapStrings(t *testing.T) {
	b := h5test.New()
	handles := b.Strings("north", "", "a string longer than eight bytes")
	r := fileReader(b)

	id, err := ParseGlobalHeapID(handles[4:16], 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id.ObjectIndex)

	gh, err := ReadGlobalHeap(r, id.CollectionAddress)
	require.NoError(t, err)

	s, err := gh.GetString(1)
	require.NoError(t, err)
	assert.Equal(t, "north", s)

	last, err := ParseGlobalHeapID(handles[32+4:], 8)
	require.NoError(t, err)
	assert.Equal(t, id.CollectionAddress, last.CollectionAddress)
	s, err = gh.GetString(uint16(last.ObjectIndex))
	require.NoError(t, err)
	assert.Equal(t, "a string longer than eight bytes", s)

	// The empty string never reached the heap.
	_, err = gh.GetObject(2)
	assert.ErrorContains(t, err, "not found")

	obj, err := gh.GetObject(1)
	require.NoError(t, err)
	obj[0] = 'X'
	s, _ = gh.GetString(1)
	assert.Equal(t, "north", s)
}

func TestGlobalHeapNil(t *testing.T) {
	var gh *GlobalHeap
	_, err := gh.GetObject(1)
	assert.Error(t, err)
}

func TestReadGlobalHeapErrors(t *testing.T) {
	b := h5test.New()
	handles := b.Strings("x")
	addr := stdbinary.LittleEndian.Uint64(handles[4:])
	data := b.Bytes(b.Object())
	reader := func() *binary.Reader {
		return binary.NewReader(bytes.NewReader(data), binary.Config{
			ByteOrder: stdbinary.LittleEndian, OffsetSize: 8, LengthSize: 8,
		})
	}

	_, err := ReadGlobalHeap(reader(), 0)
	assert.ErrorContains(t, err, "invalid global heap address")
	_, err = ReadGlobalHeap(reader(), ^uint64(0))
	assert.ErrorContains(t, err, "invalid global heap address")

	data[addr+4] = 2
	_, err = ReadGlobalHeap(reader(), addr)
	assert.ErrorContains(t, err, "version")

	copy(data[addr:], "LOCG")
	_, err = ReadGlobalHeap(reader(), addr)
	assert.ErrorContains(t, err, "signature")
}

func TestParseGlobalHeapID(t *testing.T) {
	id, err := ParseGlobalHeapID([]byte{0x00, 0x10, 0x00, 0x00, 7, 0, 0, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, GlobalHeapID{CollectionAddress: 0x1000, ObjectIndex: 7}, id)

	id, err = ParseGlobalHeapID([]byte{0x34, 0x12, 2, 1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, GlobalHeapID{CollectionAddress: 0x1234, ObjectIndex: 0x0102}, id)

	_, err = ParseGlobalHeapID(make([]byte, 11), 8)
	assert.ErrorContains(t, err, "too short")
	_, err = ParseGlobalHeapID(make([]byte, 7), 3)
	assert.ErrorContains(t, err, "unsupported offset size")
}
