package h5file

import (
	"encoding/binary"
	"fmt"

	h5bin "github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/heap"
	"github.com/robert-malhotra/go-h5dap/storage"
)

// vlenHeap resolves variable-length handles through the global heap. A
// handle is a 4-byte length followed by a global heap ID. Collections are
// cached while any buffer read through the owning handle is live.
type vlenHeap struct {
	reader *h5bin.Reader
	heaps  map[uint64]*heap.GlobalHeap
	live   map[*storage.RawBuffer]struct{}
}

func newVlenHeap(r *h5bin.Reader) vlenHeap {
	return vlenHeap{reader: r, live: make(map[*storage.RawBuffer]struct{})}
}

// handleSize returns the stored width of one variable-length handle.
func (v *vlenHeap) handleSize() int {
	return 4 + v.reader.OffsetSize() + 4
}

func (v *vlenHeap) track(buf *storage.RawBuffer) {
	v.live[buf] = struct{}{}
}

func (v *vlenHeap) deref(raw []byte) ([]byte, error) {
	if len(raw) < v.handleSize() {
		return nil, fmt.Errorf("variable-length handle of %d bytes, need %d", len(raw), v.handleSize())
	}
	length := binary.LittleEndian.Uint32(raw)
	id, err := heap.ParseGlobalHeapID(raw[4:], v.reader.OffsetSize())
	if err != nil {
		return nil, err
	}
	// A zero address is a null or empty string.
	if id.CollectionAddress == 0 || length == 0 {
		return nil, nil
	}

	gh, ok := v.heaps[id.CollectionAddress]
	if !ok {
		gh, err = heap.ReadGlobalHeap(v.reader, id.CollectionAddress)
		if err != nil {
			return nil, fmt.Errorf("reading global heap at 0x%x: %w", id.CollectionAddress, err)
		}
		if v.heaps == nil {
			v.heaps = make(map[uint64]*heap.GlobalHeap)
		}
		v.heaps[id.CollectionAddress] = gh
	}

	data, err := gh.GetObject(uint16(id.ObjectIndex))
	if err != nil {
		return nil, err
	}
	if uint64(length) < uint64(len(data)) {
		data = data[:length]
	}
	return data, nil
}

func (v *vlenHeap) reclaim(buf *storage.RawBuffer) error {
	if _, ok := v.live[buf]; !ok {
		return fmt.Errorf("buffer not owned or already reclaimed")
	}
	delete(v.live, buf)
	if len(v.live) == 0 {
		v.heaps = nil
	}
	return nil
}

// pending returns the number of buffers not yet reclaimed.
func (v *vlenHeap) pending() int {
	return len(v.live)
}
