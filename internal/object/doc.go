// Package object reads HDF5 object headers.
//
// Version 1 headers start with the version byte and frame each message in
// 8 aligned bytes. Version 2 headers start with "OHDR", use compact message
// frames and close every chunk with a lookup3 checksum. Both versions may
// spill into continuation blocks, which [Read] follows.
package object
