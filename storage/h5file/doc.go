// Package h5file implements storage.Store over HDF5 files.
//
// Files are memory-mapped when possible and read through os.File
// otherwise. Groups are navigated through link messages (new-style groups)
// and symbol table B-trees (old-style groups); soft and external links are
// followed with a per-lookup visited set bounded by [MaxLinkDepth].
//
// Datasets with compact or contiguous layouts can be read. Contiguous
// storage that was never written reads as the dataset's fill value.
// Chunked datasets can be opened and described, but reading them fails
// with [ErrUnsupportedLayout].
//
// A path of the form "object@name" opens the attribute name of object as
// a dataset:
//
//	f, err := h5file.Open("data.h5")
//	ds, err := f.OpenDataset(ctx, "/sensors/temp@units")
package h5file
