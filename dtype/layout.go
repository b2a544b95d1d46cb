package dtype

import (
	"math/bits"
	"strconv"

	"github.com/robert-malhotra/go-h5dap/h5err"
)

// Target is the value model a decode produces values for.
type Target uint8

const (
	// TargetDAP2 has no signed 8-bit and no 64-bit integer scalars.
	TargetDAP2 Target = iota
	// TargetDAP4 represents every atomic encoding as stored.
	TargetDAP4
)

func (t Target) String() string {
	if t == TargetDAP4 {
		return "dap4"
	}
	return "dap2"
}

// ParseTarget parses "dap2" or "dap4".
func ParseTarget(s string) (Target, bool) {
	switch s {
	case "dap2", "DAP2", "2":
		return TargetDAP2, true
	case "dap4", "DAP4", "4":
		return TargetDAP4, true
	}
	return TargetDAP2, false
}

// ResolveRecordSize returns the declared size of one record instance after
// checking that its members fit inside it.
func ResolveRecordSize(r Record) (uint64, error) {
	if err := Validate(r); err != nil {
		return 0, err
	}
	return r.Width, nil
}

// ResolveArrayElementCount returns the product of a's dimensions.
func ResolveArrayElementCount(a FixedArray) (uint64, error) {
	return ElementCount(a.Dims)
}

// ElementCount returns the product of dims, failing with
// KindDimensionOverflow when it does not fit in 64 bits. An empty dims
// list describes a scalar and counts as one element.
func ElementCount(dims []uint64) (uint64, error) {
	n := uint64(1)
	for i, d := range dims {
		hi, lo := bits.Mul64(n, d)
		if hi != 0 {
			return 0, h5err.New(h5err.PhaseValidate, h5err.KindDimensionOverflow).
				Detail("element count overflows at dimension %d", i).
				Build()
		}
		n = lo
	}
	return n, nil
}

// ResolveNativeKind maps a stored atomic encoding to the in-memory encoding
// of the value tree for target.
//
// DAP2 widens signed 8-bit integers to signed 16-bit; the numeric range is
// preserved but the printed kind changes from Int8 to Int16. DAP2 cannot
// represent 64-bit integers at all. The result is always little-endian.
func ResolveNativeKind(a Atomic, target Target) (Atomic, error) {
	native := Atomic{Kind: a.Kind, Width: a.Width, Order: LittleEndian}
	if target == TargetDAP4 || a.Kind == KindFloat {
		return native, nil
	}
	switch {
	case a.Kind == KindInt && a.Width == 1:
		native.Width = 2
	case a.Width == 8:
		return Atomic{}, h5err.New(h5err.PhaseValidate, h5err.KindUnsupportedMemberType).
			Detail("%d-bit %s has no %s representation", 8*a.Width, a.Kind, target).
			Build()
	}
	return native, nil
}

// SupportedFor reports whether every leaf of t has a representation in
// target.
func SupportedFor(t Type, target Target) bool {
	if !IsSupported(t) {
		return false
	}
	ok := true
	Walk(t, func(n Type) bool {
		switch v := n.(type) {
		case Atomic:
			if _, err := ResolveNativeKind(v, target); err != nil {
				ok = false
			}
		case Record:
			// Record members are judged one by one at decode time.
			return false
		}
		return ok
	})
	return ok
}

// ValidateName checks a member or path component against the name bound.
func ValidateName(name string) error {
	if len(name) > h5err.MaxNameLength {
		return h5err.New(h5err.PhaseValidate, h5err.KindNameTooLong).
			Detail("name of %d bytes exceeds %d", len(name), h5err.MaxNameLength).
			Build()
	}
	return nil
}

// ValidateRank checks a dimension count against the rank bound.
func ValidateRank(rank int) error {
	if rank > h5err.MaxRank {
		return h5err.New(h5err.PhaseValidate, h5err.KindRankExceeded).
			Detail("rank %d exceeds %d", rank, h5err.MaxRank).
			Build()
	}
	return nil
}

// Validate checks that t is internally consistent: non-zero sizes, members
// inside their record at non-decreasing offsets, positive array dimensions
// within the rank bound, names within the name bound and nesting within
// the depth bound.
func Validate(t Type) error {
	return validate(t, nil, 0)
}

func validate(t Type, path []string, depth int) error {
	if depth > h5err.MaxDepth {
		return h5err.InvalidLayout(path, "nesting deeper than %d", h5err.MaxDepth)
	}

	switch v := t.(type) {
	case nil:
		return h5err.InvalidLayout(path, "missing type")

	case Atomic:
		switch v.Width {
		case 1, 2, 4, 8:
		default:
			return h5err.InvalidLayout(path, "atomic width %d", v.Width)
		}
		if v.Kind == KindFloat && v.Width != 4 && v.Width != 8 {
			return h5err.InvalidLayout(path, "float width %d", v.Width)
		}
		if v.Kind > KindFloat {
			return h5err.InvalidLayout(path, "atomic %s", v.Kind)
		}
		return nil

	case FixedString:
		if v.Width == 0 {
			return h5err.InvalidLayout(path, "zero-width string")
		}
		return nil

	case VarString:
		if v.Width == 0 {
			return h5err.InvalidLayout(path, "zero-width string handle")
		}
		return nil

	case Unsupported:
		if v.Width == 0 {
			return h5err.InvalidLayout(path, "zero-width %s", v.Class)
		}
		return nil

	case FixedArray:
		return validateArray(v, path, depth)

	case Record:
		return validateRecord(v, path, depth)

	default:
		return h5err.InvalidLayout(path, "unknown type %T", t)
	}
}

func validateArray(a FixedArray, path []string, depth int) error {
	if len(a.Dims) == 0 {
		return h5err.InvalidLayout(path, "array without dimensions")
	}
	if err := ValidateRank(len(a.Dims)); err != nil {
		return withPath(err, path)
	}
	for i, d := range a.Dims {
		if d == 0 {
			return h5err.InvalidLayout(path, "array dimension %d is zero", i)
		}
	}
	n, err := ResolveArrayElementCount(a)
	if err != nil {
		return withPath(err, path)
	}
	if err := validate(a.Base, append(path[:len(path):len(path)], "[]"), depth+1); err != nil {
		return err
	}
	if bs := a.Base.Size(); n > ^uint64(0)/bs {
		return h5err.New(h5err.PhaseValidate, h5err.KindDimensionOverflow).
			Path(path...).
			Detail("array of %d elements of %d bytes overflows", n, bs).
			Build()
	}
	return nil
}

func validateRecord(r Record, path []string, depth int) error {
	if r.Width == 0 {
		return h5err.InvalidLayout(path, "zero-size record")
	}
	var prev uint64
	for i, m := range r.Members {
		mpath := append(path[:len(path):len(path)], memberLabel(m.Name, i))
		if err := ValidateName(m.Name); err != nil {
			return withPath(err, mpath)
		}
		if m.Offset < prev {
			return h5err.InvalidLayout(mpath, "offset %d precedes previous member at %d", m.Offset, prev)
		}
		prev = m.Offset
		if err := validate(m.Type, mpath, depth+1); err != nil {
			return err
		}
		end := m.Offset + m.Type.Size()
		if end < m.Offset || end > r.Width {
			return h5err.InvalidLayout(mpath, "member [%d, %d) exceeds record size %d", m.Offset, end, r.Width)
		}
	}
	return nil
}

func memberLabel(name string, i int) string {
	if name == "" {
		return "#" + strconv.Itoa(i)
	}
	return name
}

func withPath(err error, path []string) error {
	if e, ok := err.(*h5err.Error); ok && len(e.Path) == 0 {
		e.Path = path
	}
	return err
}
