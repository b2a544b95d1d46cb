// Package superblock locates and decodes the HDF5 superblock.
//
// The superblock sits at offset 0, 512, 1024 or 2048 and carries the sizes
// of file offsets and lengths plus the root group address. Versions 0 and 1
// reference the root group through a symbol table entry whose scratch pad
// may cache the root B-tree and local heap. Versions 2 and 3 are checksummed
// and point at the root object header directly.
package superblock
