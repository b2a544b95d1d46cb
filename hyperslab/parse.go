package hyperslab

import (
	"math"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-h5dap/h5err"
)

// Parse reads a DAP array constraint such as "[0:2:9][4]" into one Spec
// per bracket. Each bracket is one of:
//
//	[index]              a single element
//	[start:stop]         stride 1, stop inclusive
//	[start:stride:stop]  stop inclusive
//
// A stop before its start is a malformed request.
func Parse(expr string) ([]Spec, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var specs []Spec
	for len(expr) > 0 {
		if expr[0] != '[' {
			return nil, h5err.MalformedRequest("constraint %q: expected '['", expr)
		}
		end := strings.IndexByte(expr, ']')
		if end < 0 {
			return nil, h5err.MalformedRequest("constraint %q: missing ']'", expr)
		}
		sp, err := parseBracket(expr[1:end])
		if err != nil {
			return nil, err
		}
		specs = append(specs, sp)
		expr = strings.TrimSpace(expr[end+1:])
	}
	if len(specs) > h5err.MaxRank {
		return nil, h5err.New(h5err.PhaseValidate, h5err.KindRankExceeded).
			Detail("%d dimensions exceed %d", len(specs), h5err.MaxRank).
			Build()
	}
	return specs, nil
}

func parseBracket(body string) (Spec, error) {
	parts := strings.Split(body, ":")
	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return Spec{}, h5err.New(h5err.PhaseValidate, h5err.KindMalformedRequest).
				Detail("bad index %q", p).
				Cause(err).
				Build()
		}
		nums[i] = n
	}

	var start, stride, stop uint64
	switch len(nums) {
	case 1:
		start, stride, stop = nums[0], 1, nums[0]
	case 2:
		start, stride, stop = nums[0], 1, nums[1]
	case 3:
		start, stride, stop = nums[0], nums[1], nums[2]
	default:
		return Spec{}, h5err.MalformedRequest("bad constraint [%s]", body)
	}
	if stride == 0 {
		return Spec{}, h5err.MalformedRequest("[%s]: stride must be positive", body)
	}
	if start > stop {
		return Spec{}, h5err.MalformedRequest("[%s]: start greater than stop", body)
	}
	steps := (stop - start) / stride
	if steps == math.MaxUint64 {
		return Spec{}, h5err.MalformedRequest("[%s]: element count overflows", body)
	}
	return Spec{Start: start, Stride: stride, Count: steps + 1}, nil
}
