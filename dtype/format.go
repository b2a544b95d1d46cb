package dtype

import (
	"fmt"
	"strings"
)

func (a Atomic) String() string {
	s := fmt.Sprintf("%s%d", a.Kind, 8*int(a.Width))
	if a.Width > 1 {
		s += a.Order.String()
	}
	return s
}

func (s FixedString) String() string {
	return fmt.Sprintf("string[%d,%s]", s.Width, s.Pad)
}

func (VarString) String() string { return "string" }

func (a FixedArray) String() string {
	dims := make([]string, len(a.Dims))
	for i, d := range a.Dims {
		dims[i] = fmt.Sprint(d)
	}
	base := "?"
	if a.Base != nil {
		base = a.Base.String()
	}
	return fmt.Sprintf("%s[%s]", base, strings.Join(dims, ","))
}

func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "record<%d>{", r.Width)
	for i, m := range r.Members {
		if i > 0 {
			b.WriteString(", ")
		}
		typ := "?"
		if m.Type != nil {
			typ = m.Type.String()
		}
		fmt.Fprintf(&b, "%s@%d: %s", m.Name, m.Offset, typ)
	}
	b.WriteByte('}')
	return b.String()
}

func (u Unsupported) String() string {
	return fmt.Sprintf("%s<%d>", u.Class, u.Width)
}
