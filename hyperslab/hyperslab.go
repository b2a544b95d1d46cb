// Package hyperslab validates strided rectangular subset requests and maps
// them onto linear element indices of a row-major array.
package hyperslab

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-h5dap/h5err"
)

// Spec selects Count elements of one dimension, starting at Start and
// stepping by Stride.
type Spec struct {
	Start  uint64
	Stride uint64
	Count  uint64
}

func (s Spec) String() string {
	if s.Count == 0 {
		return fmt.Sprintf("[%d:%d:]", s.Start, s.Stride)
	}
	return fmt.Sprintf("[%d:%d:%d]", s.Start, s.Stride, s.Start+(s.Count-1)*s.Stride)
}

// Selection is a validated request against an array of FullDims.
//
// When All is set the request covers the whole array and Indices is nil.
// Otherwise Indices holds one ascending linear index per selected element,
// in row-major order with the last dimension varying fastest.
type Selection struct {
	FullDims []uint64
	Dims     []uint64
	Specs    []Spec
	All      bool
	Indices  []uint64
	count    uint64
}

// Len returns the number of selected elements.
func (s *Selection) Len() uint64 { return s.count }

// Empty reports whether nothing is selected.
func (s *Selection) Empty() bool { return s.count == 0 }

// Whole returns the selection covering every element of an array of dims.
func Whole(dims []uint64) (*Selection, error) {
	return Select(dims, nil)
}

// Select validates specs against fullDims and computes the selection.
// A nil or empty specs list selects the whole array.
func Select(fullDims []uint64, specs []Spec) (*Selection, error) {
	if len(fullDims) > h5err.MaxRank || len(specs) > h5err.MaxRank {
		return nil, h5err.New(h5err.PhaseValidate, h5err.KindRankExceeded).
			Detail("rank %d exceeds %d", max(len(fullDims), len(specs)), h5err.MaxRank).
			Build()
	}

	total, err := product(fullDims)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return &Selection{
			FullDims: fullDims,
			Dims:     fullDims,
			Specs:    wholeSpecs(fullDims),
			All:      true,
			count:    total,
		}, nil
	}

	if len(specs) != len(fullDims) {
		return nil, h5err.MalformedRequest("%d dimensions requested for rank %d", len(specs), len(fullDims))
	}

	dims := make([]uint64, len(specs))
	all := true
	empty := false
	for d, sp := range specs {
		if sp.Stride == 0 {
			return nil, h5err.MalformedRequest("dimension %d: stride must be positive", d)
		}
		if sp.Start >= fullDims[d] {
			return nil, h5err.MalformedRequest("dimension %d: start %d outside extent %d", d, sp.Start, fullDims[d])
		}
		dims[d] = sp.Count
		if sp.Count == 0 {
			empty = true
			all = false
			continue
		}
		hi, span := bits.Mul64(sp.Count-1, sp.Stride)
		last := sp.Start + span
		if hi != 0 || last < sp.Start || last >= fullDims[d] {
			return nil, h5err.MalformedRequest("dimension %d: window %s exceeds extent %d", d, sp, fullDims[d])
		}
		if sp.Start != 0 || sp.Stride != 1 || sp.Count != fullDims[d] {
			all = false
		}
	}

	if all {
		return &Selection{FullDims: fullDims, Dims: fullDims, Specs: specs, All: true, count: total}, nil
	}
	sel := &Selection{FullDims: fullDims, Dims: dims, Specs: specs}
	if empty {
		return sel, nil
	}

	n, err := product(dims)
	if err != nil {
		return nil, err
	}
	sel.count = n
	sel.Indices = linearIndices(fullDims, specs, n)
	return sel, nil
}

// linearIndices walks the window like an odometer: the last dimension's
// counter advances fastest and, on reaching its count, resets to its start
// while the next outer counter advances.
func linearIndices(fullDims []uint64, specs []Spec, n uint64) []uint64 {
	rank := len(fullDims)
	strides := make([]uint64, rank)
	acc := uint64(1)
	for d := rank - 1; d >= 0; d-- {
		strides[d] = acc
		acc *= fullDims[d]
	}

	counter := make([]uint64, rank)
	out := make([]uint64, 0, n)
	for {
		var idx uint64
		for d := 0; d < rank; d++ {
			idx += (specs[d].Start + counter[d]*specs[d].Stride) * strides[d]
		}
		out = append(out, idx)

		d := rank - 1
		for ; d >= 0; d-- {
			counter[d]++
			if counter[d] < specs[d].Count {
				break
			}
			counter[d] = 0
		}
		if d < 0 {
			return out
		}
	}
}

// Index returns the linear index of the i-th selected element.
func (s *Selection) Index(i uint64) uint64 {
	if s.All {
		return i
	}
	return s.Indices[i]
}

// Run is a span of consecutive linear indices.
type Run struct {
	Start uint64
	Len   uint64
}

// Runs coalesces the selection into maximal spans of consecutive indices.
func (s *Selection) Runs() []Run {
	if s.count == 0 {
		return nil
	}
	if s.All {
		return []Run{{Start: 0, Len: s.count}}
	}
	runs := []Run{{Start: s.Indices[0], Len: 1}}
	for _, idx := range s.Indices[1:] {
		last := &runs[len(runs)-1]
		if idx == last.Start+last.Len {
			last.Len++
			continue
		}
		runs = append(runs, Run{Start: idx, Len: 1})
	}
	return runs
}

// Gather copies the selected elements of a full-array buffer into a packed
// buffer in selection order.
func (s *Selection) Gather(src []byte, elemSize uint64) ([]byte, error) {
	full, err := product(s.FullDims)
	if err != nil {
		return nil, err
	}
	if hi, need := bits.Mul64(full, elemSize); hi != 0 || uint64(len(src)) < need {
		return nil, fmt.Errorf("hyperslab: source of %d bytes too short for %d elements of %d bytes", len(src), full, elemSize)
	}
	if s.All {
		out := make([]byte, s.count*elemSize)
		copy(out, src)
		return out, nil
	}
	out := make([]byte, 0, s.count*elemSize)
	for _, r := range s.Runs() {
		out = append(out, src[r.Start*elemSize:(r.Start+r.Len)*elemSize]...)
	}
	return out, nil
}

func wholeSpecs(dims []uint64) []Spec {
	specs := make([]Spec, len(dims))
	for i, d := range dims {
		specs[i] = Spec{Start: 0, Stride: 1, Count: d}
	}
	return specs
}

func product(dims []uint64) (uint64, error) {
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
