package btree

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/heap"
)

// maxDepth bounds the walk so a corrupt tree cannot recurse forever.
const maxDepth = 32

// ErrInvalidNode is returned for nodes that cannot be part of a group tree.
var ErrInvalidNode = errors.New("invalid group B-tree node")

// GroupEntry is one member of a symbol-table group.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64

	// SoftLink is the target path of a soft link entry, which has no
	// object address.
	SoftLink string
}

// ReadGroupEntries walks the group B-tree rooted at btreeAddr and returns
// its members in key order. Names are looked up in names.
func ReadGroupEntries(r *binary.Reader, btreeAddr uint64, names *heap.LocalHeap) ([]GroupEntry, error) {
	w := walker{r: r, names: names}
	if err := w.node(btreeAddr, 0); err != nil {
		return nil, err
	}
	return w.entries, nil
}

type walker struct {
	r       *binary.Reader
	names   *heap.LocalHeap
	entries []GroupEntry
}

func (w *walker) node(addr uint64, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: deeper than %d levels", ErrInvalidNode, maxDepth)
	}
	nr := w.r.At(int64(addr))
	if err := signature(nr, "TREE"); err != nil {
		return err
	}
	// Node type, level and entries used.
	hdr, err := nr.ReadBytes(4)
	if err != nil {
		return fmt.Errorf("reading B-tree node at %d: %w", addr, err)
	}
	if hdr[0] != 0 {
		return fmt.Errorf("%w: node type %d is not a group node", ErrInvalidNode, hdr[0])
	}
	level := hdr[1]
	used := int(w.r.ByteOrder().Uint16(hdr[2:]))
	// Sibling addresses.
	nr.Skip(int64(2 * w.r.OffsetSize()))

	for i := 0; i < used; i++ {
		// Keys are heap offsets of the largest name below each child.
		if _, err := nr.ReadLength(); err != nil {
			return fmt.Errorf("reading B-tree key %d: %w", i, err)
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return fmt.Errorf("reading B-tree child %d: %w", i, err)
		}
		if level > 0 {
			err = w.node(child, depth+1)
		} else {
			err = w.symbols(child)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) symbols(addr uint64) error {
	sr := w.r.At(int64(addr))
	if err := signature(sr, "SNOD"); err != nil {
		return err
	}
	hdr, err := sr.ReadBytes(4)
	if err != nil {
		return fmt.Errorf("reading symbol table node at %d: %w", addr, err)
	}
	if hdr[0] != 1 {
		return fmt.Errorf("%w: symbol table node version %d", ErrInvalidNode, hdr[0])
	}
	count := int(w.r.ByteOrder().Uint16(hdr[2:]))

	for i := 0; i < count; i++ {
		e, err := w.entry(sr)
		if err != nil {
			return fmt.Errorf("reading symbol %d at node %d: %w", i, addr, err)
		}
		if e.Name != "" {
			w.entries = append(w.entries, e)
		}
	}
	return nil
}

// cacheSoftLink marks an entry whose scratch pad holds the heap offset of
// a soft link target.
const cacheSoftLink = 2

func (w *walker) entry(r *binary.Reader) (GroupEntry, error) {
	nameOff, err := r.ReadOffset()
	if err != nil {
		return GroupEntry{}, err
	}
	addr, err := r.ReadOffset()
	if err != nil {
		return GroupEntry{}, err
	}
	cache, err := r.ReadUint32()
	if err != nil {
		return GroupEntry{}, err
	}
	r.Skip(4)
	scratch, err := r.ReadBytes(16)
	if err != nil {
		return GroupEntry{}, err
	}

	e := GroupEntry{Name: w.names.GetString(nameOff), ObjectAddress: addr}
	if cache == cacheSoftLink {
		e.ObjectAddress = 0
		e.SoftLink = w.names.GetString(uint64(w.r.ByteOrder().Uint32(scratch)))
	}
	return e, nil
}

func signature(r *binary.Reader, want string) error {
	sig, err := r.ReadBytes(len(want))
	if err != nil {
		return fmt.Errorf("reading %s signature: %w", want, err)
	}
	if string(sig) != want {
		return fmt.Errorf("%w: signature %q, want %q", ErrInvalidNode, sig, want)
	}
	return nil
}
