package decode

import (
	"bytes"
	"math"
	"strings"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/value"
)

// decodeAtomic reads raw in the stored byte order and places it in the
// value kind chosen by dtype.ResolveNativeKind. This is the only place a
// stored signed 8-bit integer widens, for whole-array and hyperslab reads
// alike.
func decodeAtomic(raw []byte, stored dtype.Atomic, target dtype.Target) (value.Value, error) {
	native, err := dtype.ResolveNativeKind(stored, target)
	if err != nil {
		return nil, err
	}
	order := stored.Order.Binary()

	switch stored.Kind {
	case dtype.KindInt:
		var v int64
		switch stored.Width {
		case 1:
			v = int64(int8(raw[0]))
		case 2:
			v = int64(int16(order.Uint16(raw)))
		case 4:
			v = int64(int32(order.Uint32(raw)))
		case 8:
			v = int64(order.Uint64(raw))
		}
		return value.NewInt(intKind(native.Width), v), nil

	case dtype.KindUint:
		var v uint64
		switch stored.Width {
		case 1:
			v = uint64(raw[0])
		case 2:
			v = uint64(order.Uint16(raw))
		case 4:
			v = uint64(order.Uint32(raw))
		case 8:
			v = order.Uint64(raw)
		}
		return value.NewUint(uintKind(native.Width), v), nil

	default:
		if stored.Width == 4 {
			return value.NewFloat32(math.Float32frombits(order.Uint32(raw))), nil
		}
		return value.NewFloat64(math.Float64frombits(order.Uint64(raw))), nil
	}
}

func intKind(width uint8) value.Kind {
	switch width {
	case 1:
		return value.Int8
	case 2:
		return value.Int16
	case 4:
		return value.Int32
	default:
		return value.Int64
	}
}

func uintKind(width uint8) value.Kind {
	switch width {
	case 1:
		return value.Uint8
	case 2:
		return value.Uint16
	case 4:
		return value.Uint32
	default:
		return value.Uint64
	}
}

// trimFixed applies a fixed-width string's padding policy. Null-terminated
// and null-padded strings end at the first NUL; space-padded strings also
// lose trailing spaces.
func trimFixed(raw []byte, pad dtype.Pad) string {
	s := cString(raw)
	if pad == dtype.PadSpacePad {
		s = strings.TrimRight(s, " ")
	}
	return s
}

// cString copies b up to its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
