package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/message"
)

// ErrUnsupported is returned by New for layout classes this package does
// not read.
var ErrUnsupported = errors.New("unsupported storage layout")

// Layout gives access to the raw bytes of a dataset. Offsets are relative
// to the first byte of the dataset's data.
type Layout interface {
	// Class returns the layout class.
	Class() message.LayoutClass

	// Allocated reports whether storage has been written. Unallocated
	// storage reads as the fill value.
	Allocated() bool

	// Size returns the logical size of the data in bytes.
	Size() uint64

	// ReadAt fills p with the bytes starting at off.
	ReadAt(p []byte, off uint64) error
}

// New creates a Layout from a DataLayout message. fill may be nil.
func New(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	fill *message.FillValue,
	reader *binary.Reader,
) (Layout, error) {
	if layout == nil {
		return nil, fmt.Errorf("nil layout message")
	}

	switch layout.Class {
	case message.LayoutCompact:
		return &compact{data: layout.CompactData}, nil

	case message.LayoutContiguous:
		return newContiguous(layout, dataspace, datatype, fill, reader), nil

	case message.LayoutChunked:
		return nil, fmt.Errorf("%w: chunked", ErrUnsupported)

	case message.LayoutVirtual:
		return nil, fmt.Errorf("%w: virtual", ErrUnsupported)

	default:
		return nil, fmt.Errorf("%w: class %d", ErrUnsupported, layout.Class)
	}
}

// ReadRuns reads the elements covered by runs, packed in run order.
func ReadRuns(l Layout, runs []hyperslab.Run, elemSize uint64) ([]byte, error) {
	var total uint64
	for _, r := range runs {
		total += r.Len
	}
	out := make([]byte, total*elemSize)

	var pos uint64
	for _, r := range runs {
		n := r.Len * elemSize
		if err := l.ReadAt(out[pos:pos+n], r.Start*elemSize); err != nil {
			return nil, fmt.Errorf("reading elements %d..%d: %w", r.Start, r.Start+r.Len-1, err)
		}
		pos += n
	}
	return out, nil
}

func checkRange(p []byte, off, size uint64) error {
	if off > size || uint64(len(p)) > size-off {
		return fmt.Errorf("range [%d, %d) outside %d bytes of storage", off, off+uint64(len(p)), size)
	}
	return nil
}

// fillPattern writes a repeating element pattern into p as if p started at
// byte off of the data. An empty pattern yields zeros.
func fillPattern(p []byte, off uint64, pattern []byte) {
	if len(pattern) == 0 {
		clear(p)
		return
	}
	n := uint64(len(pattern))
	for i := range p {
		p[i] = pattern[(off+uint64(i))%n]
	}
}
