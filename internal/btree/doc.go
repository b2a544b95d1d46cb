// Package btree lists the members of symbol-table groups, the group form
// written with version 0 and 1 superblocks.
//
// The group's "TREE" nodes lead to symbol table nodes ("SNOD") whose
// entries name each member by offset into the group's local heap. Soft
// links keep the heap offset of their target path in the entry's scratch
// pad. Chunk index trees share the "TREE" signature and are rejected.
package btree
