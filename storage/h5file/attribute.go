package h5file

import (
	"context"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/internal/message"
	"github.com/robert-malhotra/go-h5dap/storage"
)

// Attribute is an attribute opened as a dataset. Its data lives in the
// object header of its owner.
type Attribute struct {
	path   string
	msg    *message.Attribute
	desc   dtype.Type
	vlen   vlenHeap
	closed bool
}

var (
	_ storage.Dataset = (*Attribute)(nil)
	_ storage.Sizer   = (*Attribute)(nil)
)

func (f *File) openAttribute(p string) (*Attribute, error) {
	objectPath, name, err := storage.ParseAttrPath(p)
	if err != nil {
		return nil, err
	}
	owner, err := f.lookup(objectPath, make(map[string]bool))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", objectPath, err)
	}

	msg := findAttr(owner, name)
	if msg == nil {
		return nil, fmt.Errorf("attribute %q of %s: %w", name, objectPath, ErrNotFound)
	}
	if msg.Datatype == nil || msg.Dataspace == nil {
		return nil, fmt.Errorf("attribute %q of %s is incomplete", name, objectPath)
	}
	desc, err := describe(msg.Datatype)
	if err != nil {
		return nil, fmt.Errorf("attribute %q of %s: %w", name, objectPath, err)
	}

	return &Attribute{
		path: storage.JoinAttrPath(storage.CleanPath(objectPath), name),
		msg:  msg,
		desc: desc,
		vlen: newVlenHeap(owner.file.reader),
	}, nil
}

func findAttr(n *node, name string) *message.Attribute {
	for _, msg := range n.header.GetMessages(message.TypeAttribute) {
		if attr := msg.(*message.Attribute); attr.Name == name {
			return attr
		}
	}
	return nil
}

func attrNames(n *node) []string {
	var names []string
	for _, msg := range n.header.GetMessages(message.TypeAttribute) {
		names = append(names, msg.(*message.Attribute).Name)
	}
	return names
}

func (a *Attribute) Name() string { return a.path }

func (a *Attribute) Datatype() (storage.Datatype, error) {
	if a.closed {
		return nil, storage.ErrClosed
	}
	return storage.StaticType{T: a.desc}, nil
}

func (a *Attribute) Space() (storage.Dataspace, error) {
	if a.closed {
		return nil, storage.ErrClosed
	}
	return storage.StaticSpace{D: spaceDims(a.msg.Dataspace)}, nil
}

func (a *Attribute) ReadRegion(ctx context.Context, sel *hyperslab.Selection) (*storage.RawBuffer, error) {
	if a.closed {
		return nil, storage.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := a.desc.Size()
	data, err := sel.Gather(a.msg.Data, size)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a.path, err)
	}
	buf, err := storage.NewRawBuffer(data, size, sel.Len())
	if err != nil {
		return nil, err
	}
	if dtype.HasVarString(a.desc) {
		a.vlen.track(buf)
	}
	return buf, nil
}

func (a *Attribute) DerefVlen(raw []byte) ([]byte, error) {
	if a.closed {
		return nil, storage.ErrClosed
	}
	return a.vlen.deref(raw)
}

func (a *Attribute) ReclaimVlen(buf *storage.RawBuffer) error {
	return a.vlen.reclaim(buf)
}

// StorageSize returns the size of the attribute's stored value.
func (a *Attribute) StorageSize() uint64 {
	return uint64(len(a.msg.Data))
}

func (a *Attribute) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if n := a.vlen.pending(); n > 0 {
		return fmt.Errorf("closing %s: %d variable-length buffers not reclaimed", a.path, n)
	}
	return nil
}
