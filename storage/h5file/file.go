package h5file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/object"
	"github.com/robert-malhotra/go-h5dap/internal/superblock"
	"github.com/robert-malhotra/go-h5dap/storage"
)

// Option configures Open.
type Option func(*options)

type options struct {
	mmap bool
	log  *zap.Logger
}

// WithMmap selects whether the file is memory-mapped. The default is true.
func WithMmap(on bool) Option {
	return func(o *options) { o.mmap = on }
}

// WithLogger sets the logger used for open and read events.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// File is an open HDF5 file. It is safe for concurrent OpenDataset calls.
type File struct {
	path       string
	opts       options
	file       *os.File
	mapped     mmap.MMap
	size       int64
	reader     *binary.Reader
	superblock *superblock.Superblock
	log        *zap.Logger

	mu       sync.Mutex
	closed   bool
	external map[string]*File // external link targets, by file name
}

var _ storage.Store = (*File)(nil)

// Open opens an HDF5 file for reading.
func Open(path string, opts ...Option) (*File, error) {
	o := options{mmap: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s is empty", ErrNotHDF5, path)
	}

	hdf := &File{
		path: path,
		opts: o,
		file: f,
		size: info.Size(),
		log:  o.log.With(zap.String("file", path)),
	}

	var src io.ReaderAt = f
	if o.mmap {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			hdf.log.Debug("mmap failed, reading through file", zap.Error(err))
		} else {
			hdf.mapped = m
			src = bytes.NewReader(m)
		}
	}

	sb, err := superblock.Read(src)
	if err != nil {
		hdf.release()
		if errors.Is(err, superblock.ErrNotHDF5) {
			return nil, fmt.Errorf("%w: %s", ErrNotHDF5, path)
		}
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	hdf.superblock = sb
	hdf.reader = binary.NewReader(src, sb.ReaderConfig())

	hdf.log.Debug("opened file",
		zap.String("size", humanize.IBytes(uint64(info.Size()))),
		zap.Uint8("superblock", sb.Version),
		zap.Bool("mmap", hdf.mapped != nil))
	return hdf, nil
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Close releases the file and every external file opened through it.
// Calling Close more than once is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	external := f.external
	f.external = nil
	f.mu.Unlock()

	var err error
	for _, ext := range external {
		err = multierr.Append(err, ext.Close())
	}
	return multierr.Append(err, f.release())
}

func (f *File) release() error {
	var err error
	if f.mapped != nil {
		err = f.mapped.Unmap()
		f.mapped = nil
	}
	return multierr.Append(err, f.file.Close())
}

func (f *File) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// OpenDataset opens the dataset or attribute at path.
func (f *File) OpenDataset(ctx context.Context, path string) (storage.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.isClosed() {
		return nil, storage.ErrClosed
	}

	if storage.IsAttrPath(path) {
		return f.openAttribute(path)
	}

	n, err := f.lookup(path, make(map[string]bool))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !n.header.IsDataset() {
		return nil, fmt.Errorf("opening %s: %w", path, ErrNotDataset)
	}
	return newDataset(n.file, storage.CleanPath(path), n.header)
}

// openExternalFile opens an external file by name, relative to the current
// file's directory. Files are cached until f is closed.
func (f *File) openExternalFile(filename string) (*File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, storage.ErrClosed
	}
	if ext, ok := f.external[filename]; ok {
		return ext, nil
	}

	extPath := filepath.Join(filepath.Dir(f.path), filename)
	ext, err := Open(extPath, WithMmap(f.opts.mmap), WithLogger(f.opts.log))
	if err != nil {
		return nil, fmt.Errorf("opening external file %q: %w", extPath, err)
	}
	if f.external == nil {
		f.external = make(map[string]*File)
	}
	f.external[filename] = ext
	return ext, nil
}

func (f *File) root() (*node, error) {
	header, err := object.Read(f.reader, f.superblock.RootGroupAddress)
	if err != nil {
		return nil, fmt.Errorf("reading root group: %w", err)
	}
	return &node{file: f, path: "/", header: header}, nil
}
