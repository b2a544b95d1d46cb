package h5dap

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/h5err"
	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/internal/h5test"
	"github.com/robert-malhotra/go-h5dap/storage/h5file"
	"github.com/robert-malhotra/go-h5dap/value"
)

func float64s(vals ...float64) []byte {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b
}

// openHDF5 writes a small file and opens it with the HDF5 backend.
func openHDF5(t *testing.T) *h5file.File {
	t.Helper()
	b := h5test.New()

	temps := b.Object(
		h5test.Dataspace(2, 3),
		h5test.Datatype(h5test.Float(8)),
		h5test.Contiguous(b.Alloc(float64s(0, 1, 2, 3, 4, 5)), 48),
		h5test.Attribute("units", h5test.String(1, 1), []byte("K")),
	)
	small := b.Object(
		h5test.Dataspace(4),
		h5test.Datatype(h5test.Int(1, true)),
		h5test.Compact([]byte{0xFF, 2, 0xFD, 4}),
	)
	names := b.Object(
		h5test.Dataspace(3),
		h5test.Datatype(h5test.VarString()),
		h5test.Compact(b.Strings("alpha", "", "gamma")),
	)

	var obs []byte
	for i := 0; i < 2; i++ {
		rec := make([]byte, 16)
		binary.LittleEndian.PutUint32(rec, uint32(10+i))
		rec[4] = byte(i)
		binary.LittleEndian.PutUint64(rec[8:], math.Float64bits(float64(i)+0.5))
		obs = append(obs, rec...)
	}
	obsObj := b.Object(
		h5test.Dataspace(2),
		h5test.Datatype(h5test.Compound(16,
			h5test.Field{Name: "id", Offset: 0, Type: h5test.Int(4, true)},
			h5test.Field{Name: "state", Offset: 4, Type: h5test.Enum(h5test.Int(1, false), "off", "on")},
			h5test.Field{Name: "val", Offset: 8, Type: h5test.Float(8)},
		)),
		h5test.Contiguous(b.Alloc(obs), 32),
	)
	fill := b.Object(
		h5test.Dataspace(3),
		h5test.Datatype(h5test.Int(4, true)),
		h5test.Fill(int32s(2)[4:8]),
		h5test.Unallocated(12),
	)
	chunked := b.Object(
		h5test.Dataspace(8),
		h5test.Datatype(h5test.Int(4, true)),
		h5test.Chunked(4),
	)

	root := b.Group(
		h5test.HardLink("temps", temps),
		h5test.HardLink("small", small),
		h5test.HardLink("names", names),
		h5test.HardLink("obs", obsObj),
		h5test.HardLink("fill", fill),
		h5test.HardLink("chunked", chunked),
	)
	path, err := b.WriteFile(t.TempDir(), "sample.h5", root)
	require.NoError(t, err)

	f, err := h5file.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func floats(t *testing.T, v value.Value) []float64 {
	t.Helper()
	var out []float64
	for _, leaf := range value.Flatten(v) {
		out = append(out, leaf.(value.Scalar).Float())
	}
	return out
}

func TestHDF5ReadConstraint(t *testing.T) {
	r := NewReader(openHDF5(t))
	req := r.NewRequest(context.Background())
	defer req.Close()

	v, err := req.ReadConstraint("/temps", "[1][0:2:2]")
	require.NoError(t, err)
	seq := v.(value.Sequence)
	assert.Equal(t, []uint64{1, 2}, seq.Dims)
	assert.Equal(t, []float64{3, 5}, floats(t, v))

	v, err = req.Read("/temps", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, floats(t, v))
}

func TestHDF5VarStrings(t *testing.T) {
	r := NewReader(openHDF5(t))
	v, err := r.Read(context.Background(), "/names", nil)
	require.NoError(t, err)

	var got []string
	for _, e := range v.(value.Sequence).Elems {
		got = append(got, e.(value.Scalar).Str())
	}
	assert.Equal(t, []string{"alpha", "", "gamma"}, got)

	v2, err := r.Read(context.Background(), "/names", []hyperslab.Spec{{Start: 2, Stride: 1, Count: 1}})
	require.NoError(t, err)
	assert.Equal(t, "gamma", v2.(value.Sequence).Elems[0].(value.Scalar).Str())
}

func TestHDF5Int8Widening(t *testing.T) {
	f := openHDF5(t)

	v, err := NewReader(f).Read(context.Background(), "/small", nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, 2, -3, 4}, ints(t, v))
	for _, e := range v.(value.Sequence).Elems {
		assert.Equal(t, value.Int16, e.(value.Scalar).Kind())
	}

	v, err = NewReader(f, WithTarget(dtype.TargetDAP4)).Read(context.Background(), "/small", nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int8, v.(value.Sequence).Elems[0].(value.Scalar).Kind())
}

func TestHDF5Records(t *testing.T) {
	f := openHDF5(t)
	ctx := context.Background()

	_, err := NewReader(f).Read(ctx, "/obs", nil)
	require.ErrorIs(t, err, h5err.ErrUnsupportedMemberType)

	v, err := NewReader(f, WithLenient(true)).Read(ctx, "/obs", nil)
	require.NoError(t, err)
	elems := v.(value.Sequence).Elems
	require.Len(t, elems, 2)

	rec := elems[1].(value.Record)
	assert.False(t, rec.Complete())
	id, _ := rec.Get("id")
	assert.Equal(t, int64(11), id.(value.Scalar).Int())
	val, _ := rec.Get("val")
	assert.Equal(t, 1.5, val.(value.Scalar).Float())
	state, _ := rec.Get("state")
	assert.IsType(t, value.Ignored{}, state)
}

func TestHDF5Attribute(t *testing.T) {
	v, err := NewReader(openHDF5(t)).Read(context.Background(), "/temps@units", nil)
	require.NoError(t, err)
	assert.Equal(t, "K", v.(value.Scalar).Str())
}

func TestHDF5FillValue(t *testing.T) {
	v, err := NewReader(openHDF5(t)).Read(context.Background(), "/fill", nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 1}, ints(t, v))
}

func TestHDF5StorageErrors(t *testing.T) {
	r := NewReader(openHDF5(t))
	ctx := context.Background()

	_, err := r.Read(ctx, "/chunked", nil)
	require.ErrorIs(t, err, h5err.ErrStorage)
	assert.ErrorIs(t, err, h5file.ErrUnsupportedLayout)

	_, err = r.Read(ctx, "/missing", nil)
	require.ErrorIs(t, err, h5err.ErrStorage)
	assert.ErrorIs(t, err, h5file.ErrNotFound)
}

func TestHDF5Describe(t *testing.T) {
	req := NewReader(openHDF5(t)).NewRequest(context.Background())
	defer req.Close()

	desc, err := req.Describe("/temps")
	require.NoError(t, err)
	assert.Equal(t, dtype.Atomic{Kind: dtype.KindFloat, Width: 8}, desc.Type)
	assert.Equal(t, []uint64{2, 3}, desc.Dims)
	assert.Equal(t, uint64(48), desc.StorageSize)

	desc, err = req.Describe("/chunked")
	require.NoError(t, err)
	assert.Equal(t, []uint64{8}, desc.Dims)
	assert.Zero(t, desc.StorageSize)
}
