package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttrPath(t *testing.T) {
	tests := []struct {
		path   string
		object string
		attr   string
	}{
		{"/@root_attr", "/", "root_attr"},
		{"@root_attr", "/", "root_attr"},
		{"/data@units", "/data", "units"},
		{"grid//t/@scale", "/grid/t", "scale"},
		{"/odd@name@part", "/odd@name", "part"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			object, attr, err := ParseAttrPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.object, object)
			assert.Equal(t, tt.attr, attr)
			assert.True(t, IsAttrPath(tt.path))
		})
	}

	for _, bad := range []string{"", "/no/separator", "/data@"} {
		_, _, err := ParseAttrPath(bad)
		assert.Error(t, err, bad)
	}
	assert.False(t, IsAttrPath("/data"))
}

func TestJoinAttrPath(t *testing.T) {
	assert.Equal(t, "/@attr", JoinAttrPath("/", "attr"))
	assert.Equal(t, "/group/dataset@calibration", JoinAttrPath("/group/dataset", "calibration"))
}

func TestSplitAndCleanPath(t *testing.T) {
	tests := []struct {
		path  string
		parts []string
		clean string
	}{
		{"", nil, "/"},
		{"///", nil, "/"},
		{"grid", []string{"grid"}, "/grid"},
		{"/grid/", []string{"grid"}, "/grid"},
		{"//grid//t", []string{"grid", "t"}, "/grid/t"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			parts := SplitPath(tt.path)
			if len(tt.parts) == 0 {
				assert.Empty(t, parts)
			} else {
				assert.Equal(t, tt.parts, parts)
			}
			assert.Equal(t, tt.clean, CleanPath(tt.path))
		})
	}
}

func TestRawBuffer(t *testing.T) {
	buf, err := NewRawBuffer([]byte{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4}, buf.Element(1))

	_, err = NewRawBuffer([]byte{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}
