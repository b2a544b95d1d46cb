package superblock

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/h5test"
)

// checksummed encodes a version 2 or 3 superblock with 8-byte fields.
func checksummed(version uint8, eof, root uint64) []byte {
	sb := append([]byte{}, Signature...)
	sb = append(sb, version, 8, 8, 0)
	sb = binary.LittleEndian.AppendUint64(sb, 0)
	sb = binary.LittleEndian.AppendUint64(sb, ^uint64(0))
	sb = binary.LittleEndian.AppendUint64(sb, eof)
	sb = binary.LittleEndian.AppendUint64(sb, root)
	return binary.LittleEndian.AppendUint32(sb, binpkg.Lookup3Checksum(sb))
}

func TestReadSymbolTableForm(t *testing.T) {
	data := h5test.New().Bytes(0x200)

	sb, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint8(0), sb.Version)
	assert.Equal(t, uint8(8), sb.OffsetSize)
	assert.Equal(t, uint64(0x200), sb.RootGroupAddress)
	assert.Equal(t, uint64(len(data)), sb.EOFAddress)
	assert.Zero(t, sb.RootGroupBTreeAddress)

	// Cache type 1 stores the root group's B-tree and local heap.
	binary.LittleEndian.PutUint32(data[72:], 1)
	binary.LittleEndian.PutUint64(data[80:], 0x300)
	binary.LittleEndian.PutUint64(data[88:], 0x400)
	sb, err = Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x300), sb.RootGroupBTreeAddress)
	assert.Equal(t, uint64(0x400), sb.RootGroupLocalHeapAddress)
}

func TestReadVersion1FourByteOffsets(t *testing.T) {
	data := make([]byte, 28+6*4+24)
	copy(data, Signature)
	data[8] = 1
	data[13], data[14] = 4, 4
	f := data[28:]
	binary.LittleEndian.PutUint32(f[8:], 0x1000) // EOF
	binary.LittleEndian.PutUint32(f[20:], 0x60)  // root header

	sb, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), sb.Version)
	assert.Equal(t, uint64(0x1000), sb.EOFAddress)
	assert.Equal(t, uint64(0x60), sb.RootGroupAddress)

	cfg := sb.ReaderConfig()
	assert.Equal(t, 4, cfg.OffsetSize)
	assert.Equal(t, binary.LittleEndian, cfg.ByteOrder)
}

func TestReadChecksummedForm(t *testing.T) {
	for _, version := range []uint8{2, 3} {
		sb, err := Read(bytes.NewReader(checksummed(version, 2048, 48)))
		require.NoError(t, err)
		assert.Equal(t, version, sb.Version)
		assert.Equal(t, uint64(2048), sb.EOFAddress)
		assert.Equal(t, uint64(48), sb.RootGroupAddress)
		assert.Equal(t, int64(0), sb.FileOffset)
	}
}

func TestReadAfterUserBlock(t *testing.T) {
	for _, off := range []int{512, 2048} {
		data := make([]byte, off)
		data = append(data, checksummed(2, 4096, 0x830)...)
		sb, err := Read(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, int64(off), sb.FileOffset)
		assert.Equal(t, uint64(0x830), sb.RootGroupAddress)
	}
}

func TestReadErrors(t *testing.T) {
	badSum := checksummed(2, 2048, 48)
	badSum[len(badSum)-1] ^= 0xFF

	badSize := h5test.New().Bytes(0x60)
	badSize[13] = 3

	future := append([]byte{}, Signature...)
	future = append(future, 9, 0, 0, 0)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"no signature", make([]byte, 4096), ErrNotHDF5},
		{"tiny file", []byte{0x89, 'H'}, ErrNotHDF5},
		{"future version", future, ErrUnsupportedVersion},
		{"checksum", badSum, ErrInvalidSuperblock},
		{"offset size", badSize, ErrInvalidSuperblock},
		{"truncated", checksummed(2, 2048, 48)[:30], ErrInvalidSuperblock},
		{"truncated legacy", h5test.New().Bytes(0x60)[:40], ErrInvalidSuperblock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
