package h5file

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-h5dap/internal/btree"
	"github.com/robert-malhotra/go-h5dap/internal/heap"
	"github.com/robert-malhotra/go-h5dap/internal/message"
	"github.com/robert-malhotra/go-h5dap/internal/object"
	"github.com/robert-malhotra/go-h5dap/storage"
)

// node is a resolved group or dataset. file differs from the file the
// lookup started in when an external link was crossed.
type node struct {
	file   *File
	path   string
	header *object.Header
}

// lookup resolves an absolute path from the root group. visited holds the
// link targets followed so far and is shared by nested soft link lookups.
func (f *File) lookup(p string, visited map[string]bool) (*node, error) {
	current, err := f.root()
	if err != nil {
		return nil, err
	}

	parts := storage.SplitPath(p)
	for _, name := range parts {
		if current.header.IsDataset() {
			return nil, fmt.Errorf("%q is not a group: %w", current.path, ErrNotGroup)
		}
		child, err := current.findChild(name, visited)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", name, err)
		}
		child.path = path.Join(current.path, name)
		current = child
	}
	return current, nil
}

// findChild finds a child object by name.
func (n *node) findChild(name string, visited map[string]bool) (*node, error) {
	// New-style groups store one link message per child.
	for _, msg := range n.header.GetMessages(message.TypeLink) {
		link := msg.(*message.Link)
		if link.Name == name {
			return n.resolveLink(link, visited)
		}
	}

	if symTable := n.symbolTable(); symTable != nil {
		return n.findChildV1(name, symTable, visited)
	}
	return nil, ErrNotFound
}

// symbolTable returns the group's symbol table, falling back to the root
// group scratch pad cached in a v0/v1 superblock.
func (n *node) symbolTable() *message.SymbolTable {
	if msg := n.header.GetMessage(message.TypeSymbolTable); msg != nil {
		return msg.(*message.SymbolTable)
	}
	sb := n.file.superblock
	if n.path == "/" && sb.RootGroupBTreeAddress != 0 {
		return &message.SymbolTable{
			BTreeAddress:     sb.RootGroupBTreeAddress,
			LocalHeapAddress: sb.RootGroupLocalHeapAddress,
		}
	}
	return nil
}

func (n *node) resolveLink(link *message.Link, visited map[string]bool) (*node, error) {
	switch {
	case link.IsHard():
		return n.file.nodeAt(link.ObjectAddress)

	case link.IsSoft():
		return n.followSoftLink(link.SoftLinkValue, visited)

	case link.IsExternal():
		if err := visit(visited, link.ExternalFile+":"+link.ExternalPath); err != nil {
			return nil, err
		}
		ext, err := n.file.openExternalFile(link.ExternalFile)
		if err != nil {
			return nil, err
		}
		target, err := ext.lookup(link.ExternalPath, visited)
		if err != nil {
			return nil, fmt.Errorf("resolving %q in external file %q: %w", link.ExternalPath, link.ExternalFile, err)
		}
		return target, nil

	default:
		return nil, fmt.Errorf("unknown link type: %d", link.LinkType)
	}
}

func (n *node) findChildV1(name string, symTable *message.SymbolTable, visited map[string]bool) (*node, error) {
	entries, err := n.file.groupEntries(symTable)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Name != name {
			continue
		}
		if entry.SoftLink != "" {
			return n.followSoftLink(entry.SoftLink, visited)
		}
		return n.file.nodeAt(entry.ObjectAddress)
	}
	return nil, ErrNotFound
}

// followSoftLink resolves a soft link held by group n. Relative targets
// start from n.
func (n *node) followSoftLink(target string, visited map[string]bool) (*node, error) {
	if !path.IsAbs(target) {
		target = path.Join(n.path, target)
	}
	if err := visit(visited, target); err != nil {
		return nil, err
	}
	return n.file.lookup(target, visited)
}

func visit(visited map[string]bool, key string) error {
	if len(visited) >= MaxLinkDepth {
		return ErrLinkDepth
	}
	if visited[key] {
		return fmt.Errorf("circular link detected: %s", key)
	}
	visited[key] = true
	return nil
}

func (f *File) nodeAt(address uint64) (*node, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return &node{file: f, header: header}, nil
}

func (f *File) groupEntries(symTable *message.SymbolTable) ([]btree.GroupEntry, error) {
	localHeap, err := heap.ReadLocalHeap(f.reader, symTable.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("reading local heap: %w", err)
	}
	entries, err := btree.ReadGroupEntries(f.reader, symTable.BTreeAddress, localHeap)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree: %w", err)
	}
	return entries, nil
}
