// Package h5test assembles small HDF5 files in memory for tests.
//
// Files use a version 0 superblock with 8-byte offsets and lengths,
// version 1 object headers, and the message encodings the HDF5 library
// writes by default. Only the structures the readers in this module parse
// are produced.
package h5test

import (
	"encoding/binary"
	"os"
	"path/filepath"
)

const (
	superblockSize = 96
	undefined      = ^uint64(0)
)

// HDF5 message types.
const (
	TypeDataspace    uint16 = 0x0001
	TypeDatatype     uint16 = 0x0003
	TypeFillValue    uint16 = 0x0005
	TypeLink         uint16 = 0x0006
	TypeDataLayout   uint16 = 0x0008
	TypeFilter       uint16 = 0x000B
	TypeAttribute    uint16 = 0x000C
	TypeContinuation uint16 = 0x0010
	TypeSymbolTable  uint16 = 0x0011
)

// Message is one object header message.
type Message struct {
	Type uint16
	Data []byte
}

// Builder lays out file structures sequentially after the superblock.
type Builder struct {
	buf []byte
}

// New returns a builder with space reserved for the superblock.
func New() *Builder {
	return &Builder{buf: make([]byte, superblockSize)}
}

// Alloc appends data at the next 8-byte aligned address and returns that
// address.
func (b *Builder) Alloc(data []byte) uint64 {
	for len(b.buf)%8 != 0 {
		b.buf = append(b.buf, 0)
	}
	addr := uint64(len(b.buf))
	b.buf = append(b.buf, data...)
	return addr
}

// Object writes a version 1 object header holding msgs.
func (b *Builder) Object(msgs ...Message) uint64 {
	body := frames(msgs)
	prefix := make([]byte, 16)
	prefix[0] = 1
	binary.LittleEndian.PutUint16(prefix[2:], uint16(len(msgs)))
	binary.LittleEndian.PutUint32(prefix[4:], 1)
	binary.LittleEndian.PutUint32(prefix[8:], uint32(len(body)))
	return b.Alloc(append(prefix, body...))
}

// Continuation writes msgs to a separate block and returns the message
// that links a version 1 object header to it.
func (b *Builder) Continuation(msgs ...Message) Message {
	block := frames(msgs)
	addr := b.Alloc(block)
	data := binary.LittleEndian.AppendUint64(nil, addr)
	data = binary.LittleEndian.AppendUint64(data, uint64(len(block)))
	return Message{Type: TypeContinuation, Data: data}
}

// frames encodes msgs as version 1 header messages, each 8-byte aligned.
func frames(msgs []Message) []byte {
	var body []byte
	for _, m := range msgs {
		hdr := make([]byte, 8)
		binary.LittleEndian.PutUint16(hdr[0:], m.Type)
		binary.LittleEndian.PutUint16(hdr[2:], uint16(len(m.Data)))
		body = append(body, hdr...)
		body = append(body, pad8(m.Data)...)
	}
	return body
}

// Bytes finishes the file with root as the root group header address.
func (b *Builder) Bytes(root uint64) []byte {
	sb := b.buf[:superblockSize]
	copy(sb, []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'})
	sb[13] = 8 // offsets
	sb[14] = 8 // lengths
	binary.LittleEndian.PutUint16(sb[16:], 4)
	binary.LittleEndian.PutUint16(sb[18:], 16)
	binary.LittleEndian.PutUint64(sb[32:], undefined)
	binary.LittleEndian.PutUint64(sb[40:], uint64(len(b.buf)))
	binary.LittleEndian.PutUint64(sb[48:], undefined)
	binary.LittleEndian.PutUint64(sb[64:], root)

	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// WriteFile writes the finished file as dir/name and returns its path.
func (b *Builder) WriteFile(dir, name string, root uint64) (string, error) {
	p := filepath.Join(dir, name)
	return p, os.WriteFile(p, b.Bytes(root), 0o644)
}

// Group writes a new-style group whose children are given as link
// messages.
func (b *Builder) Group(links ...Message) uint64 {
	return b.Object(links...)
}

// LegacyEntry is a child of an old-style group.
type LegacyEntry struct {
	Name string
	Addr uint64
	// Soft, when set, makes the entry a soft link to that path.
	Soft string
}

// LegacyGroup writes an old-style group: a symbol table message pointing
// at a one-node B-tree, a symbol table node and a local heap of names.
func (b *Builder) LegacyGroup(entries ...LegacyEntry) uint64 {
	treeAddr, heapAddr := b.SymbolTable(entries...)
	st := make([]byte, 16)
	binary.LittleEndian.PutUint64(st[0:], treeAddr)
	binary.LittleEndian.PutUint64(st[8:], heapAddr)
	return b.Object(Message{Type: TypeSymbolTable, Data: st})
}

// SymbolTable writes a single-leaf group B-tree and its local heap.
func (b *Builder) SymbolTable(entries ...LegacyEntry) (treeAddr, heapAddr uint64) {
	heapData := make([]byte, 8)
	intern := func(s string) uint64 {
		off := uint64(len(heapData))
		heapData = append(heapData, pad8(append([]byte(s), 0))...)
		return off
	}

	snod := make([]byte, 8, 8+40*len(entries))
	copy(snod, "SNOD")
	snod[4] = 1
	binary.LittleEndian.PutUint16(snod[6:], uint16(len(entries)))
	var lastName uint64
	for _, e := range entries {
		ent := make([]byte, 40)
		lastName = intern(e.Name)
		binary.LittleEndian.PutUint64(ent[0:], lastName)
		binary.LittleEndian.PutUint64(ent[8:], e.Addr)
		if e.Soft != "" {
			binary.LittleEndian.PutUint32(ent[16:], 2)
			binary.LittleEndian.PutUint32(ent[24:], uint32(intern(e.Soft)))
		}
		snod = append(snod, ent...)
	}
	snodAddr := b.Alloc(snod)

	tree := make([]byte, 48)
	copy(tree, "TREE")
	binary.LittleEndian.PutUint16(tree[6:], 1)
	binary.LittleEndian.PutUint64(tree[8:], undefined)
	binary.LittleEndian.PutUint64(tree[16:], undefined)
	binary.LittleEndian.PutUint64(tree[32:], snodAddr)
	binary.LittleEndian.PutUint64(tree[40:], lastName)
	treeAddr = b.Alloc(tree)

	dataAddr := b.Alloc(heapData)
	heap := make([]byte, 32)
	copy(heap, "HEAP")
	binary.LittleEndian.PutUint64(heap[8:], uint64(len(heapData)))
	binary.LittleEndian.PutUint64(heap[16:], undefined)
	binary.LittleEndian.PutUint64(heap[24:], dataAddr)
	heapAddr = b.Alloc(heap)
	return treeAddr, heapAddr
}

// Strings stores strs in a global heap collection and returns their
// variable-length handles, 16 bytes each. Empty strings get a null
// handle.
func (b *Builder) Strings(strs ...string) []byte {
	var objects []byte
	for i, s := range strs {
		if s == "" {
			continue
		}
		obj := make([]byte, 16)
		binary.LittleEndian.PutUint16(obj[0:], uint16(i+1))
		binary.LittleEndian.PutUint16(obj[2:], 1)
		binary.LittleEndian.PutUint64(obj[8:], uint64(len(s)))
		objects = append(objects, obj...)
		objects = append(objects, pad8([]byte(s))...)
	}
	coll := make([]byte, 16, 16+len(objects)+16)
	copy(coll, "GCOL")
	coll[4] = 1
	binary.LittleEndian.PutUint64(coll[8:], uint64(16+len(objects)+16))
	coll = append(coll, objects...)
	coll = append(coll, make([]byte, 16)...)
	addr := b.Alloc(coll)

	handles := make([]byte, 16*len(strs))
	for i, s := range strs {
		if s == "" {
			continue
		}
		h := handles[16*i:]
		binary.LittleEndian.PutUint32(h[0:], uint32(len(s)))
		binary.LittleEndian.PutUint64(h[4:], addr)
		binary.LittleEndian.PutUint32(h[12:], uint32(i+1))
	}
	return handles
}

func pad8(data []byte) []byte {
	out := make([]byte, (len(data)+7)&^7)
	copy(out, data)
	return out
}
