// Package heap reads HDF5 local and global heaps.
//
// A local heap ("HEAP") holds the member names of a symbol-table group as
// NUL-terminated strings addressed by offset. A global heap collection
// ("GCOL") holds numbered objects; variable-length strings point into one
// through a [GlobalHeapID].
package heap
