// Package storage defines the boundary between the decode engine and the
// layer that opens datasets and reads their bytes.
//
// Every method may fail; callers wrap failures as h5err.KindStorage.
// Handles returned by one OpenDataset call belong to the caller and must
// not be used concurrently with each other, while distinct opens are
// independent.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
)

// ErrClosed is returned by handles used after Close.
var ErrClosed = errors.New("storage: handle closed")

// Store opens datasets by path.
type Store interface {
	OpenDataset(ctx context.Context, path string) (Dataset, error)
	Close() error
}

// Dataset is an open dataset or attribute.
type Dataset interface {
	// Name returns the path the dataset was opened with.
	Name() string

	// Datatype returns a handle to the stored element type.
	Datatype() (Datatype, error)

	// Space returns a handle to the dataset's extent.
	Space() (Dataspace, error)

	// ReadRegion reads the selected elements packed in selection order.
	ReadRegion(ctx context.Context, sel *hyperslab.Selection) (*RawBuffer, error)

	// DerefVlen resolves the variable-length handle stored in raw.
	DerefVlen(raw []byte) ([]byte, error)

	// ReclaimVlen releases the variable-length data referenced by buf.
	// It is called once per buffer, after every handle in it has been
	// dereferenced.
	ReclaimVlen(buf *RawBuffer) error

	Close() error
}

// Datatype is a handle to a stored element type.
type Datatype interface {
	Descriptor() dtype.Type
	Close() error
}

// Dataspace is a handle to a dataset's extent. A scalar dataspace has no
// dimensions.
type Dataspace interface {
	Dims() []uint64
	Close() error
}

// Sizer is implemented by datasets that can report their allocated
// storage size in bytes.
type Sizer interface {
	StorageSize() uint64
}

// RawBuffer holds Count packed elements of Stride bytes each.
type RawBuffer struct {
	Data   []byte
	Stride uint64
	Count  uint64
}

// NewRawBuffer wraps data as count elements of stride bytes, checking the
// length.
func NewRawBuffer(data []byte, stride, count uint64) (*RawBuffer, error) {
	b := &RawBuffer{Data: data, Stride: stride, Count: count}
	if err := b.Check(); err != nil {
		return nil, err
	}
	return b, nil
}

// Check reports whether Data holds Count elements of Stride bytes.
func (b *RawBuffer) Check() error {
	if b.Stride != 0 && b.Count > uint64(len(b.Data))/b.Stride {
		return fmt.Errorf("storage: buffer of %d bytes too short for %d elements of %d bytes",
			len(b.Data), b.Count, b.Stride)
	}
	return nil
}

// Element returns the bytes of element i.
func (b *RawBuffer) Element(i uint64) []byte {
	return b.Data[i*b.Stride : (i+1)*b.Stride]
}

// Datatypes and dataspaces that need no release can embed NopCloser.
type NopCloser struct{}

func (NopCloser) Close() error { return nil }

// StaticType is a Datatype backed by a descriptor.
type StaticType struct {
	NopCloser
	T dtype.Type
}

func (s StaticType) Descriptor() dtype.Type { return s.T }

// StaticSpace is a Dataspace backed by a dims slice.
type StaticSpace struct {
	NopCloser
	D []uint64
}

func (s StaticSpace) Dims() []uint64 { return s.D }
