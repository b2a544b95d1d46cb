package value

import (
	"fmt"
	"io"
	"strings"
)

// Interface converts v to plain Go values suitable for JSON encoding.
// Sequences become []any, records become ordered []map entries so that
// declaration order survives encoding.
func Interface(v Value) any {
	switch n := v.(type) {
	case Scalar:
		return n.Interface()
	case Sequence:
		out := make([]any, len(n.Elems))
		for i, e := range n.Elems {
			out[i] = Interface(e)
		}
		return out
	case Record:
		out := make([]map[string]any, len(n.Fields))
		for i, f := range n.Fields {
			out[i] = map[string]any{f.Name: Interface(f.Value)}
		}
		return out
	case Ignored:
		return map[string]any{"ignored": n.Reason}
	}
	return nil
}

// Format writes an indented text rendering of v.
func Format(w io.Writer, v Value) error {
	f := formatter{w: w}
	f.value(v, 0)
	return f.err
}

// Sprint returns the text rendering of v.
func Sprint(v Value) string {
	var b strings.Builder
	_ = Format(&b, v)
	return b.String()
}

type formatter struct {
	w   io.Writer
	err error
}

func (f *formatter) printf(format string, args ...any) {
	if f.err != nil {
		return
	}
	_, f.err = fmt.Fprintf(f.w, format, args...)
}

func (f *formatter) value(v Value, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := v.(type) {
	case Scalar:
		f.printf("%s\n", n)
	case Ignored:
		f.printf("<ignored: %s>\n", n.Reason)
	case Sequence:
		if leafSequence(n) {
			parts := make([]string, len(n.Elems))
			for i, e := range n.Elems {
				parts[i] = e.(Scalar).String()
			}
			f.printf("%v [%s]\n", n.Dims, strings.Join(parts, ", "))
			return
		}
		f.printf("%v\n", n.Dims)
		for i, e := range n.Elems {
			f.printf("%s  [%d] ", indent, i)
			f.value(e, depth+2)
		}
	case Record:
		f.printf("{\n")
		for _, fl := range n.Fields {
			f.printf("%s  %s: ", indent, fl.Name)
			f.value(fl.Value, depth+1)
		}
		f.printf("%s}\n", indent)
	default:
		f.printf("<nil>\n")
	}
}

func leafSequence(s Sequence) bool {
	for _, e := range s.Elems {
		if _, ok := e.(Scalar); !ok {
			return false
		}
	}
	return true
}
