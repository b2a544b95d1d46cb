package h5file

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/internal/h5test"
	"github.com/robert-malhotra/go-h5dap/storage"
)

var (
	i32 = dtype.Atomic{Kind: dtype.KindInt, Width: 4}
	f64 = dtype.Atomic{Kind: dtype.KindFloat, Width: 8}
)

func int32s(vals ...int32) []byte {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

// sampleFile writes a file exercising every layout and link kind the
// package reads.
func sampleFile(t *testing.T) string {
	t.Helper()
	b := h5test.New()

	intsData := b.Alloc(int32s(0, 1, 2, 3, 4, 5))
	var grid []byte
	for i := 0; i < 12; i++ {
		grid = binary.LittleEndian.AppendUint16(grid, uint16(i))
	}
	gridData := b.Alloc(grid)

	scale := binary.LittleEndian.AppendUint64(nil, 0x3FF0000000000000)  // 1.0
	scale = binary.LittleEndian.AppendUint64(scale, 0x4000000000000000) // 2.0
	ints := b.Object(
		h5test.Dataspace(6),
		h5test.Datatype(h5test.Int(4, true)),
		h5test.Contiguous(intsData, 24),
		h5test.Attribute("scale", h5test.Float(8), scale, 2),
	)
	gridObj := b.Object(
		h5test.Dataspace(3, 4),
		h5test.Datatype(h5test.Int(2, false)),
		h5test.Contiguous(gridData, 24),
	)
	be := b.Object(
		h5test.Dataspace(),
		h5test.Datatype(h5test.BigEndianInt(4, true)),
		h5test.Compact([]byte{0, 0, 1, 0}),
	)
	names := b.Object(
		h5test.Dataspace(3),
		h5test.Datatype(h5test.VarString()),
		h5test.Compact(b.Strings("alpha", "", "gamma")),
	)
	fill := b.Object(
		h5test.Dataspace(4),
		h5test.Datatype(h5test.Int(4, true)),
		h5test.Fill(int32s(7)),
		h5test.Unallocated(16),
	)
	chunked := b.Object(
		h5test.Dataspace(8),
		h5test.Datatype(h5test.Int(4, true)),
		h5test.Chunked(4),
		h5test.Deflate(6),
	)
	empty := b.Object(
		h5test.NullDataspace(),
		h5test.Datatype(h5test.Int(4, true)),
		h5test.Compact(nil),
	)
	grp := b.Group(
		h5test.HardLink("inner", ints),
		h5test.SoftLink("rel", "inner"),
		h5test.SoftLink("up", "../grid"),
	)
	legacy := b.LegacyGroup(
		h5test.LegacyEntry{Name: "x", Addr: ints},
		h5test.LegacyEntry{Name: "y", Soft: "/grid"},
		h5test.LegacyEntry{Name: "z", Soft: "x"},
	)

	root := b.Object(
		h5test.HardLink("ints", ints),
		h5test.HardLink("grid", gridObj),
		h5test.HardLink("be", be),
		h5test.HardLink("names", names),
		h5test.HardLink("fill", fill),
		h5test.HardLink("chunked", chunked),
		h5test.HardLink("empty", empty),
		h5test.HardLink("grp", grp),
		h5test.HardLink("legacy", legacy),
		h5test.SoftLink("alias", "/grp/inner"),
		h5test.SoftLink("loopA", "/loopB"),
		h5test.SoftLink("loopB", "/loopA"),
		h5test.Attribute("title", h5test.String(5, 1), []byte("hello")),
	)

	path, err := b.WriteFile(t.TempDir(), "sample.h5", root)
	require.NoError(t, err)
	return path
}

func openSample(t *testing.T, opts ...Option) *File {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	f, err := Open(sampleFile(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func readAll(t *testing.T, ds storage.Dataset) *storage.RawBuffer {
	t.Helper()
	space, err := ds.Space()
	require.NoError(t, err)
	sel, err := hyperslab.Whole(space.Dims())
	require.NoError(t, err)
	buf, err := ds.ReadRegion(context.Background(), sel)
	require.NoError(t, err)
	return buf
}

func TestOpen(t *testing.T) {
	for _, mmap := range []bool{true, false} {
		f := openSample(t, WithMmap(mmap))
		assert.Equal(t, 0, f.Version())
		assert.Positive(t, f.Size())
		assert.Equal(t, "sample.h5", filepath.Base(f.Path()))
	}
}

func TestOpenNotHDF5(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.h5")
	require.NoError(t, os.WriteFile(garbage, make([]byte, 2048), 0o644))
	_, err := Open(garbage)
	assert.ErrorIs(t, err, ErrNotHDF5)

	empty := filepath.Join(dir, "empty.h5")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Open(empty)
	assert.ErrorIs(t, err, ErrNotHDF5)

	_, err = Open(filepath.Join(dir, "missing.h5"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadContiguous(t *testing.T) {
	for _, mmap := range []bool{true, false} {
		f := openSample(t, WithMmap(mmap))
		ds, err := f.OpenDataset(context.Background(), "ints")
		require.NoError(t, err)

		assert.Equal(t, "/ints", ds.Name())
		typ, err := ds.Datatype()
		require.NoError(t, err)
		assert.Equal(t, i32, typ.Descriptor())

		buf := readAll(t, ds)
		assert.Equal(t, int32s(0, 1, 2, 3, 4, 5), buf.Data)
		assert.Equal(t, uint64(6), buf.Count)
		assert.Equal(t, uint64(4), buf.Stride)
		assert.Equal(t, uint64(24), ds.(storage.Sizer).StorageSize())
		require.NoError(t, ds.Close())
	}
}

func TestReadHyperslab(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/grid")
	require.NoError(t, err)
	defer ds.Close()

	space, err := ds.Space()
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 4}, space.Dims())

	sel, err := hyperslab.Select(space.Dims(), []hyperslab.Spec{
		{Start: 0, Stride: 2, Count: 2},
		{Start: 1, Stride: 1, Count: 2},
	})
	require.NoError(t, err)
	buf, err := ds.ReadRegion(context.Background(), sel)
	require.NoError(t, err)

	var got []uint16
	for i := uint64(0); i < buf.Count; i++ {
		got = append(got, binary.LittleEndian.Uint16(buf.Element(i)))
	}
	assert.Equal(t, []uint16{1, 2, 9, 10}, got)
}

func TestReadScalarBigEndian(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/be")
	require.NoError(t, err)
	defer ds.Close()

	typ, _ := ds.Datatype()
	assert.Equal(t, dtype.Atomic{Kind: dtype.KindInt, Width: 4, Order: dtype.BigEndian}, typ.Descriptor())
	space, _ := ds.Space()
	assert.Empty(t, space.Dims())

	buf := readAll(t, ds)
	assert.Equal(t, uint32(256), binary.BigEndian.Uint32(buf.Data))
}

func TestNullDataspace(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/empty")
	require.NoError(t, err)
	defer ds.Close()

	space, _ := ds.Space()
	assert.Equal(t, []uint64{0}, space.Dims())
	buf := readAll(t, ds)
	assert.Zero(t, buf.Count)
	assert.Empty(t, buf.Data)
}

func TestVarStrings(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/names")
	require.NoError(t, err)

	typ, _ := ds.Datatype()
	assert.Equal(t, dtype.VarString{Width: 16}, typ.Descriptor())

	buf := readAll(t, ds)
	var got []string
	for i := uint64(0); i < buf.Count; i++ {
		s, err := ds.DerefVlen(buf.Element(i))
		require.NoError(t, err)
		got = append(got, string(s))
	}
	assert.Equal(t, []string{"alpha", "", "gamma"}, got)

	_, err = ds.DerefVlen(buf.Data[:8])
	assert.Error(t, err)

	require.NoError(t, ds.ReclaimVlen(buf))
	assert.Error(t, ds.ReclaimVlen(buf), "second reclaim")
	assert.NoError(t, ds.Close())
}

func TestCloseWithPendingVlen(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/names")
	require.NoError(t, err)

	readAll(t, ds)
	assert.ErrorContains(t, ds.Close(), "not reclaimed")
	assert.NoError(t, ds.Close(), "second close")
}

func TestUnallocatedFill(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/fill")
	require.NoError(t, err)
	defer ds.Close()

	buf := readAll(t, ds)
	assert.Equal(t, int32s(7, 7, 7, 7), buf.Data)
	assert.Zero(t, ds.(storage.Sizer).StorageSize())
}

func TestChunkedDeferredError(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/chunked")
	require.NoError(t, err)
	defer ds.Close()

	typ, err := ds.Datatype()
	require.NoError(t, err)
	assert.Equal(t, i32, typ.Descriptor())
	space, _ := ds.Space()
	assert.Equal(t, []uint64{8}, space.Dims())

	sel, err := hyperslab.Whole(space.Dims())
	require.NoError(t, err)
	_, err = ds.ReadRegion(context.Background(), sel)
	assert.ErrorIs(t, err, ErrUnsupportedLayout)
	assert.ErrorContains(t, err, "(1 filters)")
	assert.Zero(t, ds.(storage.Sizer).StorageSize())
}

func TestLinks(t *testing.T) {
	f := openSample(t)

	for _, p := range []string{"/alias", "/grp/inner", "/grp/rel", "/legacy/x", "/legacy/z"} {
		t.Run(p, func(t *testing.T) {
			ds, err := f.OpenDataset(context.Background(), p)
			require.NoError(t, err)
			defer ds.Close()
			assert.Equal(t, p, ds.Name())
			assert.Equal(t, int32s(0, 1, 2, 3, 4, 5), readAll(t, ds).Data)
		})
	}

	for _, p := range []string{"/legacy/y", "/grp/up"} {
		ds, err := f.OpenDataset(context.Background(), p)
		require.NoError(t, err, p)
		space, _ := ds.Space()
		assert.Equal(t, []uint64{3, 4}, space.Dims(), p)
		ds.Close()
	}

	_, err := f.OpenDataset(context.Background(), "/loopA")
	assert.ErrorContains(t, err, "circular link")
}

func TestOpenErrors(t *testing.T) {
	f := openSample(t)
	ctx := context.Background()

	tests := []struct {
		path string
		want error
	}{
		{"/missing", ErrNotFound},
		{"/grp/missing", ErrNotFound},
		{"/legacy/missing", ErrNotFound},
		{"/grp", ErrNotDataset},
		{"/", ErrNotDataset},
		{"/ints/deeper", ErrNotGroup},
		{"/ints@missing", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := f.OpenDataset(ctx, tt.path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAttributes(t *testing.T) {
	f := openSample(t)

	title, err := f.OpenDataset(context.Background(), "/@title")
	require.NoError(t, err)
	assert.Equal(t, "/@title", title.Name())
	typ, _ := title.Datatype()
	assert.Equal(t, dtype.FixedString{Width: 5, Pad: dtype.PadNullPad}, typ.Descriptor())
	assert.Equal(t, []byte("hello"), readAll(t, title).Data)
	assert.Equal(t, uint64(5), title.(storage.Sizer).StorageSize())
	require.NoError(t, title.Close())

	scale, err := f.OpenDataset(context.Background(), "ints@scale")
	require.NoError(t, err)
	defer scale.Close()
	assert.Equal(t, "/ints@scale", scale.Name())
	typ, _ = scale.Datatype()
	assert.Equal(t, f64, typ.Descriptor())

	sel, err := hyperslab.Select([]uint64{2}, []hyperslab.Spec{{Start: 1, Stride: 1, Count: 1}})
	require.NoError(t, err)
	buf, err := scale.ReadRegion(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x4000000000000000), binary.LittleEndian.Uint64(buf.Data))
}

func TestClosedHandles(t *testing.T) {
	f := openSample(t)
	ds, err := f.OpenDataset(context.Background(), "/ints")
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	_, err = ds.Datatype()
	assert.ErrorIs(t, err, storage.ErrClosed)
	sel, _ := hyperslab.Whole([]uint64{6})
	_, err = ds.ReadRegion(context.Background(), sel)
	assert.ErrorIs(t, err, storage.ErrClosed)

	require.NoError(t, f.Close())
	assert.NoError(t, f.Close())
	_, err = f.OpenDataset(context.Background(), "/ints")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, f.Walk(func(Entry) error { return nil }), storage.ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	f := openSample(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.OpenDataset(ctx, "/ints")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalk(t *testing.T) {
	f := openSample(t)

	var paths []string
	datasets := map[string]bool{}
	attrs := map[string][]string{}
	err := f.Walk(func(e Entry) error {
		paths = append(paths, e.Path)
		datasets[e.Path] = e.Dataset
		if len(e.Attrs) > 0 {
			attrs[e.Path] = e.Attrs
		}
		return nil
	})
	require.NoError(t, err)

	// /grp/inner and /legacy/x name /ints again; soft links are skipped.
	assert.Equal(t, []string{
		"/", "/ints", "/grid", "/be", "/names", "/fill", "/chunked", "/empty", "/grp", "/legacy",
	}, paths)
	assert.True(t, datasets["/ints"])
	assert.False(t, datasets["/grp"])
	assert.Equal(t, map[string][]string{"/": {"title"}, "/ints": {"scale"}}, attrs)
}

func TestWalkStops(t *testing.T) {
	f := openSample(t)
	stop := assert.AnError
	n := 0
	err := f.Walk(func(Entry) error {
		n++
		if n == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, n)
}

func TestDescribe(t *testing.T) {
	u8 := dtype.Atomic{Kind: dtype.KindUint, Width: 1}
	tests := []struct {
		name string
		typ  []byte
		want dtype.Type
	}{
		{"uint16", h5test.Int(2, false), dtype.Atomic{Kind: dtype.KindUint, Width: 2}},
		{"int64be", h5test.BigEndianInt(8, true), dtype.Atomic{Kind: dtype.KindInt, Width: 8, Order: dtype.BigEndian}},
		{"float32", h5test.Float(4), dtype.Atomic{Kind: dtype.KindFloat, Width: 4}},
		{"spacepad", h5test.String(8, 2), dtype.FixedString{Width: 8, Pad: dtype.PadSpacePad}},
		{"nullterm", h5test.String(3, 0), dtype.FixedString{Width: 3, Pad: dtype.PadNullTerm}},
		{"vlen", h5test.VarString(), dtype.VarString{Width: 16}},
		{"int24", h5test.Int(3, false), dtype.Unsupported{Class: "int24", Width: 3}},
		{"opaque", h5test.Opaque(4), dtype.Unsupported{Class: dtype.ClassOpaque, Width: 4}},
		{"enum", h5test.Enum(h5test.Int(1, false), "off", "on"), dtype.Unsupported{Class: dtype.ClassEnum, Width: 1}},
		{"array", h5test.Array(h5test.Float(8), 2, 3), dtype.FixedArray{Base: f64, Dims: []uint64{2, 3}}},
		{"array v2", h5test.ArrayV2(h5test.Int(1, false), 4), dtype.FixedArray{Base: u8, Dims: []uint64{4}}},
		{
			"record",
			h5test.Compound(16,
				h5test.Field{Name: "id", Offset: 0, Type: h5test.Int(4, true)},
				h5test.Field{Name: "kind", Offset: 4, Type: h5test.Enum(h5test.Int(1, false), "a", "b", "c")},
				h5test.Field{Name: "val", Offset: 8, Type: h5test.Float(8)},
			),
			dtype.NewRecord(16,
				dtype.Member{Name: "id", Offset: 0, Type: i32},
				dtype.Member{Name: "kind", Offset: 4, Type: dtype.Unsupported{Class: dtype.ClassEnum, Width: 1}},
				dtype.Member{Name: "val", Offset: 8, Type: f64},
			),
		},
		{
			"record v1",
			h5test.CompoundV1(8,
				h5test.Field{Name: "a", Offset: 0, Type: h5test.Int(4, true)},
				h5test.Field{Name: "b", Offset: 4, Type: h5test.Float(4)},
			),
			dtype.NewRecord(8,
				dtype.Member{Name: "a", Offset: 0, Type: i32},
				dtype.Member{Name: "b", Offset: 4, Type: dtype.Atomic{Kind: dtype.KindFloat, Width: 4}},
			),
		},
		{
			"nested record",
			h5test.Compound(8,
				h5test.Field{Name: "inner", Offset: 0, Type: h5test.Compound(4,
					h5test.Field{Name: "x", Offset: 0, Type: h5test.Int(4, true)},
				)},
				h5test.Field{Name: "y", Offset: 4, Type: h5test.Int(4, true)},
			),
			dtype.NewRecord(8,
				dtype.Member{Name: "inner", Offset: 0, Type: dtype.NewRecord(4,
					dtype.Member{Name: "x", Offset: 0, Type: i32},
				)},
				dtype.Member{Name: "y", Offset: 4, Type: i32},
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := h5test.New()
			size := binary.LittleEndian.Uint32(tt.typ[4:])
			obj := b.Object(
				h5test.Dataspace(),
				h5test.Datatype(tt.typ),
				h5test.Compact(make([]byte, size)),
			)
			root := b.Group(h5test.HardLink("v", obj))
			path, err := b.WriteFile(t.TempDir(), "t.h5", root)
			require.NoError(t, err)

			f, err := Open(path)
			require.NoError(t, err)
			defer f.Close()
			ds, err := f.OpenDataset(context.Background(), "/v")
			require.NoError(t, err)
			defer ds.Close()

			typ, err := ds.Datatype()
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ.Descriptor())
		})
	}
}

func TestExternalLink(t *testing.T) {
	dir := t.TempDir()

	other := h5test.New()
	ints := other.Object(
		h5test.Dataspace(3),
		h5test.Datatype(h5test.Int(4, true)),
		h5test.Compact(int32s(4, 5, 6)),
	)
	_, err := other.WriteFile(dir, "other.h5", other.Group(h5test.HardLink("ints", ints)))
	require.NoError(t, err)

	b := h5test.New()
	root := b.Group(
		h5test.ExternalLink("ext", "other.h5", "/ints"),
		h5test.ExternalLink("gone", "missing.h5", "/ints"),
	)
	path, err := b.WriteFile(dir, "main.h5", root)
	require.NoError(t, err)

	f, err := Open(path, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset(context.Background(), "/ext")
	require.NoError(t, err)
	assert.Equal(t, int32s(4, 5, 6), readAll(t, ds).Data)
	require.NoError(t, ds.Close())

	_, err = f.OpenDataset(context.Background(), "/gone")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
