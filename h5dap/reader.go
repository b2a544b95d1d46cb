package h5dap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/h5err"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/internal/decode"
	"github.com/robert-malhotra/go-h5dap/internal/guard"
	"github.com/robert-malhotra/go-h5dap/storage"
	"github.com/robert-malhotra/go-h5dap/value"
)

// Reader reads variables from a store.
type Reader struct {
	store storage.Store
	opts  *options
}

// NewReader returns a Reader over store.
func NewReader(store storage.Store, opts ...Option) *Reader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Reader{store: store, opts: o}
}

// Read is a one-shot read in a request of its own.
func (r *Reader) Read(ctx context.Context, path string, slab []hyperslab.Spec) (value.Value, error) {
	req := r.NewRequest(ctx)
	defer req.Close()
	return req.Read(path, slab)
}

// Query names one variable and the subsets to read from it.
type Query struct {
	Path string

	// Slab selects a hyperslab of the variable; nil reads it whole.
	Slab []hyperslab.Spec

	// Members subsets array members of record variables, keyed by dotted
	// member path.
	Members map[string][]hyperslab.Spec
}

// Description is the metadata of a variable.
type Description struct {
	Path        string
	Type        dtype.Type
	Dims        []uint64
	StorageSize uint64 // zero when the backend cannot tell
}

// Request is the context of one top-level protocol request. It is not safe
// for concurrent use; concurrent requests each get their own.
type Request struct {
	ID uuid.UUID

	ctx          context.Context
	r            *Reader
	log          *zap.Logger
	descriptions map[string]*Description
}

// NewRequest starts a request.
func (r *Reader) NewRequest(ctx context.Context) *Request {
	id := uuid.New()
	return &Request{
		ID:           id,
		ctx:          ctx,
		r:            r,
		log:          r.opts.logger.With(zap.Stringer("request", id)),
		descriptions: make(map[string]*Description),
	}
}

// Close ends the request and drops its cached metadata.
func (q *Request) Close() error {
	q.descriptions = nil
	return nil
}

// Read reads the variable at path, restricted to slab when it is not nil.
func (q *Request) Read(path string, slab []hyperslab.Spec) (value.Value, error) {
	return q.Query(Query{Path: path, Slab: slab})
}

// ReadConstraint reads the variable at path restricted by a DAP array
// constraint such as "[0:2:9][4]".
func (q *Request) ReadConstraint(path, constraint string) (value.Value, error) {
	slab, err := hyperslab.Parse(constraint)
	if err != nil {
		return nil, err
	}
	return q.Read(path, slab)
}

// Query reads one variable. Scalar variables decode to a single value,
// all others to a value.Sequence shaped like the selection.
func (q *Request) Query(qry Query) (v value.Value, err error) {
	start := time.Now()
	log := q.log.With(zap.String("path", qry.Path))
	defer func() {
		q.r.opts.metrics.observe(start, err)
		if err != nil && !h5err.IsRelease(err) {
			log.Debug("read failed", zap.Error(err))
		}
	}()

	if err := validateQuery(qry); err != nil {
		return nil, err
	}

	scope := guard.New(log, qry.Path)
	v, err = q.read(scope, qry, log)
	if rerr := scope.Close(); rerr != nil {
		if err != nil {
			return nil, multierr.Append(err, rerr)
		}
		return v, rerr
	}
	if err != nil {
		return nil, err
	}
	log.Debug("read", zap.Duration("elapsed", time.Since(start)))
	return v, nil
}

func (q *Request) read(scope *guard.Scope, qry Query, log *zap.Logger) (value.Value, error) {
	ds, desc, err := q.open(scope, qry.Path)
	if err != nil {
		return nil, err
	}

	sel, err := hyperslab.Select(desc.Dims, qry.Slab)
	if err != nil {
		return nil, withPath(err, qry.Path)
	}

	dec := decode.New(ds, decode.Options{
		Target:      q.r.opts.target,
		Lenient:     q.r.opts.lenient,
		MemberSlabs: qry.Members,
		Path:        qry.Path,
		Logger:      log,
	})

	buf, err := ds.ReadRegion(q.ctx, sel)
	if err != nil {
		return nil, h5err.Storage(h5err.PhaseRead, qry.Path, err)
	}
	q.r.opts.metrics.read(len(buf.Data))
	if dtype.HasVarString(desc.Type) {
		err := scope.Acquire(guard.Vlen, "read buffer", func() error {
			q.r.opts.metrics.reclaimed()
			return ds.ReclaimVlen(buf)
		})
		if err != nil {
			return nil, err
		}
	}

	vals, err := dec.Decode(buf, desc.Type)
	if err != nil {
		return nil, err
	}
	log.Debug("decoded",
		zap.Uint64("elements", sel.Len()),
		zap.Int("bytes", len(buf.Data)),
		zap.Int("vlen_derefs", dec.Derefs()))

	if len(desc.Dims) == 0 {
		return vals[0], nil
	}
	return value.Sequence{Dims: sel.Dims, Elems: vals}, nil
}

// open acquires the dataset, datatype and dataspace handles of path into
// scope and validates what they describe.
func (q *Request) open(scope *guard.Scope, path string) (storage.Dataset, *Description, error) {
	ds, err := q.r.store.OpenDataset(q.ctx, path)
	if err != nil {
		return nil, nil, h5err.Storage(h5err.PhaseOpen, path, err)
	}
	if err := scope.Acquire(guard.Dataset, path, ds.Close); err != nil {
		return nil, nil, err
	}

	th, err := ds.Datatype()
	if err != nil {
		return nil, nil, h5err.Storage(h5err.PhaseOpen, path, err)
	}
	if err := scope.Acquire(guard.Datatype, "type", th.Close); err != nil {
		return nil, nil, err
	}

	sp, err := ds.Space()
	if err != nil {
		return nil, nil, h5err.Storage(h5err.PhaseOpen, path, err)
	}
	if err := scope.Acquire(guard.Dataspace, "space", sp.Close); err != nil {
		return nil, nil, err
	}

	if desc, ok := q.descriptions[path]; ok {
		return ds, desc, nil
	}

	desc := &Description{Path: path, Type: th.Descriptor(), Dims: sp.Dims()}
	if s, ok := ds.(storage.Sizer); ok {
		desc.StorageSize = s.StorageSize()
	}
	if err := q.validate(desc); err != nil {
		return nil, nil, err
	}
	q.descriptions[path] = desc
	return ds, desc, nil
}

func (q *Request) validate(desc *Description) error {
	if err := dtype.ValidateRank(len(desc.Dims)); err != nil {
		return withPath(err, desc.Path)
	}
	if d := dtype.Depth(desc.Type); d > q.r.opts.maxDepth {
		return h5err.InvalidLayout([]string{desc.Path}, "nesting depth %d exceeds %d", d, q.r.opts.maxDepth)
	}
	if err := dtype.Validate(desc.Type); err != nil {
		if e, ok := err.(*h5err.Error); ok {
			e.Path = append([]string{desc.Path}, e.Path...)
		}
		return err
	}
	return nil
}

// Describe returns the type and shape of the variable at path without
// reading its data.
func (q *Request) Describe(path string) (desc *Description, err error) {
	if err := validateQuery(Query{Path: path}); err != nil {
		return nil, err
	}
	if desc, ok := q.descriptions[path]; ok {
		return desc, nil
	}

	scope := guard.New(q.log, path)
	defer func() {
		err = multierr.Append(err, scope.Close())
	}()
	_, desc, err = q.open(scope, path)
	return desc, err
}

// validateQuery applies the bounds that can be checked before any storage
// handle is acquired.
func validateQuery(qry Query) error {
	if qry.Path == "" {
		return h5err.MalformedRequest("empty variable path")
	}
	for _, name := range storage.SplitPath(qry.Path) {
		if err := dtype.ValidateName(name); err != nil {
			return withPath(err, qry.Path)
		}
	}
	if err := checkSlab(qry.Slab); err != nil {
		return withPath(err, qry.Path)
	}
	for member, slab := range qry.Members {
		if err := dtype.ValidateName(member); err != nil {
			return withPath(err, qry.Path)
		}
		if err := checkSlab(slab); err != nil {
			return withPath(err, qry.Path, member)
		}
	}
	return nil
}

func checkSlab(slab []hyperslab.Spec) error {
	if err := dtype.ValidateRank(len(slab)); err != nil {
		return err
	}
	for d, sp := range slab {
		if sp.Stride == 0 {
			return h5err.MalformedRequest("dimension %d: stride must be positive", d)
		}
	}
	return nil
}

func withPath(err error, path ...string) error {
	if e, ok := err.(*h5err.Error); ok && len(e.Path) == 0 {
		e.Path = path
	}
	return err
}
