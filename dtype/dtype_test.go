package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	i32 = Atomic{Kind: KindInt, Width: 4}
	f32 = Atomic{Kind: KindFloat, Width: 4}
)

func TestSizes(t *testing.T) {
	point := NewRecord(8,
		Member{Name: "x", Offset: 0, Type: f32},
		Member{Name: "y", Offset: 4, Type: f32},
	)
	tests := []struct {
		name string
		t    Type
		want uint64
	}{
		{"atomic", i32, 4},
		{"fixed string", FixedString{Width: 12}, 12},
		{"var string", VarString{Width: 16}, 16},
		{"array", FixedArray{Base: i32, Dims: []uint64{2, 3}}, 24},
		{"record", point, 8},
		{"array of records", FixedArray{Base: point, Dims: []uint64{3}}, 24},
		{"unsupported", Unsupported{Class: ClassOpaque, Width: 5}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.t.Size())
		})
	}
}

func TestString(t *testing.T) {
	rec := NewRecord(12,
		Member{Name: "a", Offset: 0, Type: i32},
		Member{Name: "b", Offset: 4, Type: FixedArray{Base: f32, Dims: []uint64{2}}},
	)
	assert.Equal(t, "record<12>{a@0: int32le, b@4: float32le[2]}", rec.String())
	assert.Equal(t, "int8", Atomic{Kind: KindInt, Width: 1}.String())
	assert.Equal(t, "uint16be", Atomic{Kind: KindUint, Width: 2, Order: BigEndian}.String())
	assert.Equal(t, "string[4,spacepad]", FixedString{Width: 4, Pad: PadSpacePad}.String())
}

func TestHasVarString(t *testing.T) {
	nested := NewRecord(24,
		Member{Name: "id", Offset: 0, Type: i32},
		Member{Name: "tags", Offset: 8, Type: FixedArray{Base: VarString{Width: 16}, Dims: []uint64{1}}},
	)
	assert.True(t, HasVarString(nested))
	assert.False(t, HasVarString(i32))
	assert.False(t, HasVarString(FixedString{Width: 3}))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(i32))
	assert.False(t, IsSupported(Unsupported{Class: ClassEnum, Width: 1}))
	assert.False(t, IsSupported(FixedArray{Base: Unsupported{Class: ClassOpaque, Width: 2}, Dims: []uint64{4}}))
	assert.False(t, IsSupported(nil))
}

func TestRecordMember(t *testing.T) {
	rec := NewRecord(8, Member{Name: "x", Type: f32}, Member{Name: "y", Offset: 4, Type: f32})
	m, ok := rec.Member("y")
	assert.True(t, ok)
	assert.Equal(t, uint64(4), m.Offset)
	_, ok = rec.Member("z")
	assert.False(t, ok)
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(i32))
	assert.Equal(t, 1, Depth(FixedArray{Base: i32, Dims: []uint64{2}}))
	nested := NewRecord(8, Member{Name: "a", Type: FixedArray{Base: NewRecord(4, Member{Name: "x", Type: f32}), Dims: []uint64{2}}})
	assert.Equal(t, 3, Depth(nested))
}
