package h5file

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-h5dap/internal/message"
	"github.com/robert-malhotra/go-h5dap/storage"
)

// Entry describes one object found by Walk.
type Entry struct {
	// Path is the full path of the object.
	Path string

	// Dataset is false for groups.
	Dataset bool

	// Attrs lists the object's attribute names.
	Attrs []string
}

// WalkFunc is called for each object during traversal. Return nil to
// continue walking, or an error to stop.
type WalkFunc func(e Entry) error

// Walk visits every group and dataset reachable through hard links,
// starting with the root group. Each object is visited once even when it
// has several names.
func (f *File) Walk(fn WalkFunc) error {
	if f.isClosed() {
		return storage.ErrClosed
	}
	root, err := f.root()
	if err != nil {
		return err
	}
	seen := make(map[uint64]bool)
	return f.walkNode(root, seen, fn)
}

func (f *File) walkNode(n *node, seen map[uint64]bool, fn WalkFunc) error {
	seen[n.header.Address] = true
	if err := fn(Entry{Path: n.path, Dataset: n.header.IsDataset(), Attrs: attrNames(n)}); err != nil {
		return err
	}
	if n.header.IsDataset() {
		return nil
	}

	children, err := f.hardChildren(n)
	if err != nil {
		return err
	}
	for _, child := range children {
		if seen[child.address] {
			continue
		}
		c, err := f.nodeAt(child.address)
		if err != nil {
			return err
		}
		c.path = path.Join(n.path, child.name)
		if err := f.walkNode(c, seen, fn); err != nil {
			return err
		}
	}
	return nil
}

type childRef struct {
	name    string
	address uint64
}

// hardChildren lists children reached through hard links. Soft and
// external links are skipped so that the walk cannot loop or leave the
// file.
func (f *File) hardChildren(n *node) ([]childRef, error) {
	var refs []childRef
	for _, msg := range n.header.GetMessages(message.TypeLink) {
		if link := msg.(*message.Link); link.IsHard() {
			refs = append(refs, childRef{name: link.Name, address: link.ObjectAddress})
		}
	}
	if len(refs) > 0 {
		return refs, nil
	}
	symTable := n.symbolTable()
	if symTable == nil {
		return nil, nil
	}
	entries, err := f.groupEntries(symTable)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", n.path, err)
	}
	for _, e := range entries {
		if e.SoftLink == "" {
			refs = append(refs, childRef{name: e.Name, address: e.ObjectAddress})
		}
	}
	return refs, nil
}
