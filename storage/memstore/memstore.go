// Package memstore is an in-memory storage backend. It counts every handle
// operation so callers can check resource lifecycles.
package memstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/storage"
)

// VlenWidth is the size of the variable-length handles memstore writes: an
// 8-byte little-endian index into the dataset's string arena.
const VlenWidth = 8

// ErrNotFound is returned when no dataset is stored at a path.
var ErrNotFound = errors.New("memstore: dataset not found")

// Stats counts handle operations across all datasets of a store.
type Stats struct {
	Opens        int
	Closes       int
	TypeCloses   int
	SpaceCloses  int
	Reads        int
	Derefs       int
	Reclaims     int
	ReclaimOrder []string // "space" and "reclaim" events, in call order
}

// Faults injects failures into a dataset's handles.
type Faults struct {
	Open    error
	Read    error
	Reclaim error
	Close   error
}

type entry struct {
	typ    dtype.Type
	dims   []uint64
	data   []byte
	arena  [][]byte
	faults Faults
}

// Store holds datasets in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	datasets map[string]*entry
	stats    Stats
	open     int
}

// New returns an empty store.
func New() *Store {
	return &Store{datasets: make(map[string]*entry)}
}

// Put stores a dataset of type t and shape dims with the given raw bytes.
// A nil dims describes a scalar. Strings interned at path before Put stay
// valid.
func (s *Store) Put(path string, t dtype.Type, dims []uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &entry{typ: t, dims: dims, data: data}
	if old, ok := s.datasets[path]; ok {
		e.arena = old.arena
	}
	s.datasets[path] = e
}

// PutStrings stores a dataset of variable-length strings.
func (s *Store) PutStrings(path string, dims []uint64, strs []string) {
	e := &entry{typ: dtype.VarString{Width: VlenWidth}, dims: dims}
	for _, str := range strs {
		e.data = binary.LittleEndian.AppendUint64(e.data, uint64(len(e.arena)))
		e.arena = append(e.arena, []byte(str))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[path] = e
}

// Intern adds str to the string arena of the dataset at path and returns
// the handle bytes to embed in its raw data.
func (s *Store) Intern(path, str string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.datasets[path]
	if !ok {
		e = &entry{}
		s.datasets[path] = e
	}
	h := binary.LittleEndian.AppendUint64(nil, uint64(len(e.arena)))
	e.arena = append(e.arena, []byte(str))
	return h
}

// Inject sets the faults of the dataset at path. Handles opened earlier
// keep the faults they were opened with.
func (s *Store) Inject(path string, f Faults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.datasets[path]; ok {
		e.faults = f
	}
}

// Stats returns a snapshot of the operation counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.ReclaimOrder = append([]string(nil), s.stats.ReclaimOrder...)
	return st
}

// Open returns the number of dataset handles not yet closed.
func (s *Store) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Paths lists the stored dataset paths in order.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.datasets))
	for p := range s.datasets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// OpenDataset implements storage.Store.
func (s *Store) OpenDataset(ctx context.Context, path string) (storage.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.datasets[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if e.faults.Open != nil {
		return nil, e.faults.Open
	}
	s.stats.Opens++
	s.open++
	return &dataset{store: s, path: path, e: *e, live: make(map[*storage.RawBuffer]bool)}, nil
}

// Close implements storage.Store.
func (s *Store) Close() error { return nil }

// dataset reads a copy of its entry taken at open, so Inject, Intern and
// Put on the store do not race with open handles.
type dataset struct {
	store  *Store
	path   string
	e      entry
	live   map[*storage.RawBuffer]bool
	closed bool
}

func (d *dataset) Name() string { return d.path }

func (d *dataset) Datatype() (storage.Datatype, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	return &typeHandle{store: d.store, t: d.e.typ}, nil
}

func (d *dataset) Space() (storage.Dataspace, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	return &spaceHandle{store: d.store, dims: d.e.dims}, nil
}

func (d *dataset) ReadRegion(ctx context.Context, sel *hyperslab.Selection) (*storage.RawBuffer, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.e.faults.Read != nil {
		return nil, d.e.faults.Read
	}
	size := d.e.typ.Size()
	data, err := sel.Gather(d.e.data, size)
	if err != nil {
		return nil, err
	}

	d.store.mu.Lock()
	d.store.stats.Reads++
	d.store.mu.Unlock()

	buf := &storage.RawBuffer{Data: data, Stride: size, Count: sel.Len()}
	if dtype.HasVarString(d.e.typ) {
		d.live[buf] = true
	}
	return buf, nil
}

func (d *dataset) DerefVlen(raw []byte) ([]byte, error) {
	if d.closed {
		return nil, storage.ErrClosed
	}
	if len(raw) < VlenWidth {
		return nil, fmt.Errorf("memstore: handle of %d bytes", len(raw))
	}
	idx := binary.LittleEndian.Uint64(raw)
	if idx >= uint64(len(d.e.arena)) {
		return nil, fmt.Errorf("memstore: no string %d", idx)
	}

	d.store.mu.Lock()
	d.store.stats.Derefs++
	d.store.mu.Unlock()

	out := make([]byte, len(d.e.arena[idx]))
	copy(out, d.e.arena[idx])
	return out, nil
}

func (d *dataset) ReclaimVlen(buf *storage.RawBuffer) error {
	if !d.live[buf] {
		return fmt.Errorf("memstore: buffer not owned or already reclaimed")
	}
	delete(d.live, buf)

	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	d.store.stats.Reclaims++
	d.store.stats.ReclaimOrder = append(d.store.stats.ReclaimOrder, "reclaim")
	return d.e.faults.Reclaim
}

func (d *dataset) Close() error {
	if d.closed {
		return storage.ErrClosed
	}
	d.closed = true
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	d.store.stats.Closes++
	d.store.open--
	return d.e.faults.Close
}

type typeHandle struct {
	store  *Store
	t      dtype.Type
	closed bool
}

func (h *typeHandle) Descriptor() dtype.Type { return h.t }

func (h *typeHandle) Close() error {
	if h.closed {
		return storage.ErrClosed
	}
	h.closed = true
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.stats.TypeCloses++
	return nil
}

type spaceHandle struct {
	store  *Store
	dims   []uint64
	closed bool
}

func (h *spaceHandle) Dims() []uint64 { return h.dims }

func (h *spaceHandle) Close() error {
	if h.closed {
		return storage.ErrClosed
	}
	h.closed = true
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.stats.SpaceCloses++
	h.store.stats.ReclaimOrder = append(h.store.stats.ReclaimOrder, "space")
	return nil
}
