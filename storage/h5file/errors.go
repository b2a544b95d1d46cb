package h5file

import "errors"

var (
	ErrNotHDF5           = errors.New("not an HDF5 file")
	ErrNotFound          = errors.New("object not found")
	ErrNotDataset        = errors.New("object is not a dataset")
	ErrNotGroup          = errors.New("object is not a group")
	ErrUnsupportedLayout = errors.New("unsupported storage layout")
	ErrLinkDepth         = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth is the maximum number of soft or external links followed
// while resolving one path.
const MaxLinkDepth = 100
