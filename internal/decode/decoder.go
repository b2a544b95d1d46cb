// Package decode turns raw element buffers into value trees, directed by a
// validated type descriptor.
//
// Offsets are threaded top-down: a member of a record that is element i of
// an array at offset o is read at o + i*recordSize + member.Offset, and no
// node ever looks back at its parent.
package decode

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/h5err"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/storage"
	"github.com/robert-malhotra/go-h5dap/value"
)

// VlenResolver dereferences variable-length handles found in a buffer.
type VlenResolver interface {
	DerefVlen(raw []byte) ([]byte, error)
}

// Options control how stored types map onto values.
type Options struct {
	// Target selects the value model; see dtype.ResolveNativeKind.
	Target dtype.Target

	// Lenient replaces record members of unsupported type with
	// value.Ignored instead of failing the decode.
	Lenient bool

	// MemberSlabs subsets array members inside records. Keys are dotted
	// member paths such as "obs.samples".
	MemberSlabs map[string][]hyperslab.Spec

	// Path names the variable in errors and logs.
	Path string

	Logger *zap.Logger
}

// Decoder decodes buffers of one variable. A Decoder is not safe for
// concurrent use; create one per read.
type Decoder struct {
	opts   Options
	vlen   VlenResolver
	log    *zap.Logger
	slabs  map[string]*hyperslab.Selection
	derefs int
}

// New returns a decoder resolving variable-length data through vlen, which
// may be nil when the type has no variable-length strings.
func New(vlen VlenResolver, opts Options) *Decoder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{opts: opts, vlen: vlen, log: log}
}

// Derefs returns the number of variable-length handles dereferenced so far.
func (d *Decoder) Derefs() int { return d.derefs }

// Decode decodes every element of buf as t. Either every element decodes
// or an error is returned and nothing is.
func (d *Decoder) Decode(buf *storage.RawBuffer, t dtype.Type) ([]value.Value, error) {
	if err := d.prepare(t); err != nil {
		return nil, err
	}
	if buf.Stride != t.Size() {
		return nil, h5err.New(h5err.PhaseDecode, h5err.KindStorage).
			Path(d.opts.Path).
			Detail("buffer stride %d does not match element size %d", buf.Stride, t.Size()).
			Build()
	}
	if err := buf.Check(); err != nil {
		return nil, h5err.Storage(h5err.PhaseDecode, d.opts.Path, err)
	}

	out := make([]value.Value, buf.Count)
	for i := uint64(0); i < buf.Count; i++ {
		v, err := d.decode(buf.Data, i*buf.Stride, t, nil)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DecodeOne decodes a single element held in data.
func (d *Decoder) DecodeOne(data []byte, t dtype.Type) (value.Value, error) {
	vals, err := d.Decode(&storage.RawBuffer{Data: data, Stride: t.Size(), Count: 1}, t)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

// prepare validates t and the member subsets against it.
func (d *Decoder) prepare(t dtype.Type) error {
	if err := dtype.Validate(t); err != nil {
		return d.withVar(err)
	}
	if !dtype.SupportedFor(t, d.opts.Target) {
		return h5err.New(h5err.PhaseValidate, h5err.KindUnsupportedMemberType).
			Path(d.opts.Path).
			Detail("%s has no %s representation", t, d.opts.Target).
			Build()
	}
	if d.slabs != nil || len(d.opts.MemberSlabs) == 0 {
		return nil
	}

	d.slabs = make(map[string]*hyperslab.Selection, len(d.opts.MemberSlabs))
	for key, specs := range d.opts.MemberSlabs {
		arr, err := findArrayMember(t, strings.Split(key, "."))
		if err != nil {
			return d.withVar(err)
		}
		sel, err := hyperslab.Select(arr.Dims, specs)
		if err != nil {
			return d.withVar(err)
		}
		d.slabs[key] = sel
	}
	return nil
}

func (d *Decoder) withVar(err error) error {
	if e, ok := err.(*h5err.Error); ok && d.opts.Path != "" {
		e.Path = append([]string{d.opts.Path}, e.Path...)
	}
	return err
}

// decode reads one instance of t at off. path holds the member names from
// the outermost record down to t.
func (d *Decoder) decode(buf []byte, off uint64, t dtype.Type, path []string) (value.Value, error) {
	switch v := t.(type) {
	case dtype.Atomic:
		raw, err := d.span(buf, off, uint64(v.Width), path)
		if err != nil {
			return nil, err
		}
		return decodeAtomic(raw, v, d.opts.Target)

	case dtype.FixedString:
		raw, err := d.span(buf, off, uint64(v.Width), path)
		if err != nil {
			return nil, err
		}
		return value.NewString(trimFixed(raw, v.Pad)), nil

	case dtype.VarString:
		raw, err := d.span(buf, off, uint64(v.Width), path)
		if err != nil {
			return nil, err
		}
		return d.derefString(raw, path)

	case dtype.FixedArray:
		return d.decodeArray(buf, off, v, path)

	case dtype.Record:
		return d.decodeRecord(buf, off, v, path)

	case dtype.Unsupported:
		return nil, d.unsupported(v, path)

	default:
		return nil, h5err.New(h5err.PhaseDecode, h5err.KindInvalidLayout).
			Path(d.fullPath(path)...).
			Detail("unknown type %T", t).
			Build()
	}
}

func (d *Decoder) decodeArray(buf []byte, off uint64, a dtype.FixedArray, path []string) (value.Value, error) {
	bs := a.Base.Size()
	sel := d.slabs[strings.Join(path, ".")]
	if sel == nil {
		n, err := dtype.ResolveArrayElementCount(a)
		if err != nil {
			return nil, err
		}
		elems := make([]value.Value, n)
		for i := uint64(0); i < n; i++ {
			if elems[i], err = d.decode(buf, off+i*bs, a.Base, path); err != nil {
				return nil, err
			}
		}
		return value.Sequence{Dims: a.Dims, Elems: elems}, nil
	}

	elems := make([]value.Value, sel.Len())
	for i := range elems {
		var err error
		idx := sel.Index(uint64(i))
		if elems[i], err = d.decode(buf, off+idx*bs, a.Base, path); err != nil {
			return nil, err
		}
	}
	return value.Sequence{Dims: sel.Dims, Elems: elems}, nil
}

func (d *Decoder) decodeRecord(buf []byte, off uint64, r dtype.Record, path []string) (value.Value, error) {
	fields := make([]value.Field, len(r.Members))
	for i, m := range r.Members {
		mpath := append(path[:len(path):len(path)], m.Name)
		fields[i].Name = m.Name

		if !dtype.SupportedFor(m.Type, d.opts.Target) {
			if !d.opts.Lenient {
				return nil, d.unsupported(m.Type, mpath)
			}
			d.log.Debug("ignoring member",
				zap.String("path", d.opts.Path),
				zap.String("member", strings.Join(mpath, ".")),
				zap.Stringer("type", m.Type))
			fields[i].Value = value.Ignored{Reason: m.Type.String()}
			continue
		}

		v, err := d.decode(buf, off+m.Offset, m.Type, mpath)
		if err != nil {
			return nil, err
		}
		fields[i].Value = v
	}
	return value.Record{Fields: fields}, nil
}

func (d *Decoder) derefString(raw []byte, path []string) (value.Value, error) {
	if d.vlen == nil {
		return nil, h5err.New(h5err.PhaseDecode, h5err.KindStorage).
			Path(d.fullPath(path)...).
			Detail("no resolver for variable-length data").
			Build()
	}
	data, err := d.vlen.DerefVlen(raw)
	if err != nil {
		return nil, h5err.New(h5err.PhaseDecode, h5err.KindStorage).
			Path(d.fullPath(path)...).
			Detail("dereference variable-length string").
			Cause(err).
			Build()
	}
	d.derefs++
	return value.NewString(cString(data)), nil
}

func (d *Decoder) unsupported(t dtype.Type, path []string) error {
	return h5err.New(h5err.PhaseDecode, h5err.KindUnsupportedMemberType).
		Path(d.fullPath(path)...).
		Detail("%s has no %s representation", t, d.opts.Target).
		Build()
}

func (d *Decoder) span(buf []byte, off, n uint64, path []string) ([]byte, error) {
	if off > uint64(len(buf)) || n > uint64(len(buf))-off {
		return nil, h5err.New(h5err.PhaseDecode, h5err.KindStorage).
			Path(d.fullPath(path)...).
			Detail("%d bytes at offset %d past buffer of %d bytes", n, off, len(buf)).
			Build()
	}
	return buf[off : off+n], nil
}

func (d *Decoder) fullPath(path []string) []string {
	if d.opts.Path == "" {
		return path
	}
	return append([]string{d.opts.Path}, path...)
}

// findArrayMember follows names through nested records, descending into
// arrays of records, and returns the array member at the end.
func findArrayMember(t dtype.Type, names []string) (dtype.FixedArray, error) {
	cur := t
	for i, name := range names {
		for {
			a, ok := cur.(dtype.FixedArray)
			if !ok {
				break
			}
			cur = a.Base
		}
		rec, ok := cur.(dtype.Record)
		if !ok {
			return dtype.FixedArray{}, h5err.MalformedRequest("%s is not a record", strings.Join(names[:i], "."))
		}
		m, ok := rec.Member(name)
		if !ok {
			return dtype.FixedArray{}, h5err.MalformedRequest("no member %s", strconv.Quote(strings.Join(names[:i+1], ".")))
		}
		cur = m.Type
	}
	a, ok := cur.(dtype.FixedArray)
	if !ok {
		return dtype.FixedArray{}, h5err.MalformedRequest("member %s is not an array", strings.Join(names, "."))
	}
	return a, nil
}
