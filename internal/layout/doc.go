// Package layout reads the raw bytes of HDF5 datasets.
//
// Compact data is held in the object header and contiguous data in one
// block of the file. A contiguous block that was never written has an
// undefined address and reads as the dataset's fill value, or zeros when
// none is defined. Chunked and virtual storage are rejected by [New] with
// [ErrUnsupported].
//
// A hyperslab selection is read with [ReadRuns], which turns each run of
// consecutive elements into one [Layout.ReadAt] call.
package layout
