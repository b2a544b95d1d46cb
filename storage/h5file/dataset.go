package h5file

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/internal/layout"
	"github.com/robert-malhotra/go-h5dap/internal/message"
	"github.com/robert-malhotra/go-h5dap/internal/object"
	"github.com/robert-malhotra/go-h5dap/storage"
)

// Dataset is an open HDF5 dataset. It is not safe for concurrent use.
type Dataset struct {
	file      *File
	path      string
	header    *object.Header
	dataspace *message.Dataspace
	desc      dtype.Type
	layout    layout.Layout
	layoutErr error
	vlen      vlenHeap
	closed    bool
}

var (
	_ storage.Dataset = (*Dataset)(nil)
	_ storage.Sizer   = (*Dataset)(nil)
)

func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	ds := &Dataset{
		file:   f,
		path:   path,
		header: header,
		vlen:   newVlenHeap(f.reader),
	}

	ds.dataspace = header.Dataspace()
	if ds.dataspace == nil {
		return nil, fmt.Errorf("dataset %s missing dataspace message", path)
	}

	datatype := header.Datatype()
	if datatype == nil {
		return nil, fmt.Errorf("dataset %s missing datatype message", path)
	}
	desc, err := describe(datatype)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.desc = desc

	layoutMsg := header.DataLayout()
	if layoutMsg == nil {
		return nil, fmt.Errorf("dataset %s missing layout message", path)
	}

	// The type and shape of a chunked dataset are still available, so
	// layout failures surface on read.
	ds.layout, err = layout.New(layoutMsg, ds.dataspace, datatype, header.FillValue(), f.reader)
	switch {
	case errors.Is(err, layout.ErrUnsupported):
		ds.layoutErr = fmt.Errorf("%w: %s%s", ErrUnsupportedLayout, path, filterSummary(header.FilterPipeline()))
	case err != nil:
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

func filterSummary(p *message.FilterPipeline) string {
	if p == nil || len(p.Filters) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d filters)", len(p.Filters))
}

// Name returns the path the dataset was opened with.
func (d *Dataset) Name() string {
	return d.path
}

func (d *Dataset) Datatype() (storage.Datatype, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	return storage.StaticType{T: d.desc}, nil
}

// Space returns the dataset extent. A null dataspace has one dimension of
// length zero.
func (d *Dataset) Space() (storage.Dataspace, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	return storage.StaticSpace{D: spaceDims(d.dataspace)}, nil
}

func spaceDims(s *message.Dataspace) []uint64 {
	switch s.SpaceType {
	case message.DataspaceScalar:
		return nil
	case message.DataspaceNull:
		return []uint64{0}
	}
	dims := make([]uint64, len(s.Dimensions))
	copy(dims, s.Dimensions)
	return dims
}

// ReadRegion reads the selected elements in selection order.
func (d *Dataset) ReadRegion(ctx context.Context, sel *hyperslab.Selection) (*storage.RawBuffer, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.layoutErr != nil {
		return nil, d.layoutErr
	}

	size := d.desc.Size()
	data, err := layout.ReadRuns(d.layout, sel.Runs(), size)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	buf, err := storage.NewRawBuffer(data, size, sel.Len())
	if err != nil {
		return nil, err
	}
	if dtype.HasVarString(d.desc) {
		d.vlen.track(buf)
	}

	d.file.log.Debug("read region",
		zap.String("path", d.path),
		zap.Uint64("elements", buf.Count),
		zap.Int("bytes", len(buf.Data)),
		zap.Bool("allocated", d.layout.Allocated()))
	return buf, nil
}

func (d *Dataset) DerefVlen(raw []byte) ([]byte, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	return d.vlen.deref(raw)
}

func (d *Dataset) ReclaimVlen(buf *storage.RawBuffer) error {
	return d.vlen.reclaim(buf)
}

// StorageSize returns the bytes allocated for the dataset's data, zero
// when storage is unallocated or unreadable.
func (d *Dataset) StorageSize() uint64 {
	if d.layout == nil || !d.layout.Allocated() {
		return 0
	}
	return d.layout.Size()
}

// Close releases the dataset. It fails if variable-length buffers read
// through it were not reclaimed.
func (d *Dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if n := d.vlen.pending(); n > 0 {
		return fmt.Errorf("closing %s: %d variable-length buffers not reclaimed", d.path, n)
	}
	return nil
}
