package message

// LayoutClass is the way a dataset's raw data is stored.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndexType is the chunk index of a version 4 chunked layout.
// Earlier versions always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

// DataLayout locates a dataset's raw data.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// CompactData is the raw data of a compact layout.
	CompactData []byte

	// Address and Size locate contiguous storage. Address is undefined
	// until the data is first written.
	Address uint64
	Size    uint64

	// Chunk dimensions exclude the trailing element size dimension.
	ChunkDims      []uint32
	ChunkIndexAddr uint64
	ChunkIndexType ChunkIndexType
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func (p *payload) dataLayout() *DataLayout {
	l := &DataLayout{Version: p.u8()}
	switch l.Version {
	case 1, 2:
		p.legacyLayout(l)
	case 3, 4:
		p.layout(l)
	default:
		p.failf("unsupported version %d", l.Version)
	}
	return l
}

// legacyLayout reads versions 1 and 2, which record a dimensionality for
// every class.
func (p *payload) legacyLayout(l *DataLayout) {
	rank := int(p.u8())
	l.Class = LayoutClass(p.u8())
	p.skip(5)
	if l.Class != LayoutCompact {
		l.Address = p.addr()
	}
	dims := make([]uint32, rank)
	for i := range dims {
		dims[i] = p.u32()
	}
	// Contiguous storage is sized from the dataspace, since these versions
	// may truncate dimensions.
	switch l.Class {
	case LayoutCompact:
		l.CompactData = p.copied(int(p.u32()))
	case LayoutChunked:
		l.ChunkIndexAddr, l.Address = l.Address, 0
		if rank > 0 {
			l.ChunkDims = dims[:rank-1]
		}
	}
}

func (p *payload) layout(l *DataLayout) {
	l.Class = LayoutClass(p.u8())
	switch l.Class {
	case LayoutCompact:
		l.CompactData = p.copied(int(p.u16()))
	case LayoutContiguous:
		l.Address = p.addr()
		l.Size = p.length()
	case LayoutChunked:
		if l.Version == 3 {
			rank := int(p.u8())
			l.ChunkIndexAddr = p.addr()
			l.ChunkDims = p.chunkDims(rank, 4)
			return
		}
		p.skip(1) // flags
		rank := int(p.u8())
		l.ChunkDims = p.chunkDims(rank, int(p.u8()))
		l.ChunkIndexType = ChunkIndexType(p.u8())
		// Index parameters vary by type; the index address ends the body.
		p.skip(p.left() - p.offsetSize)
		l.ChunkIndexAddr = p.addr()
	case LayoutVirtual:
	default:
		p.failf("unknown layout class %d", l.Class)
	}
}

// chunkDims reads rank dimensions of width bytes and drops the last, which
// is the element size.
func (p *payload) chunkDims(rank, width int) []uint32 {
	if rank == 0 {
		return nil
	}
	dims := make([]uint32, rank)
	for i := range dims {
		dims[i] = uint32(p.uint(width))
	}
	return dims[:rank-1]
}

// copied consumes n bytes and returns a copy.
func (p *payload) copied(n int) []byte {
	if b := p.bytes(n); len(b) > 0 {
		return append([]byte(nil), b...)
	}
	return nil
}
