package message

// Attribute is a small named value attached to an object.
type Attribute struct {
	Version uint8
	Name    string

	// Datatype and Dataspace are nil when their encodings could not be
	// decoded.
	Datatype  *Datatype
	Dataspace *Dataspace

	// Data holds the raw value, laid out like dataset storage.
	Data []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func (p *payload) attribute() *Attribute {
	a := &Attribute{Version: p.u8()}
	if a.Version < 1 || a.Version > 3 {
		p.failf("unsupported version %d", a.Version)
		return nil
	}
	p.skip(1) // flags
	nameSize := int(p.u16())
	typeSize := int(p.u16())
	spaceSize := int(p.u16())
	if a.Version == 3 {
		p.skip(1) // name encoding
	}

	// Version 1 pads each part to a multiple of 8 bytes.
	next := func(n int) *payload {
		start := p.pos
		part := p.sub(n)
		if a.Version == 1 {
			p.pad(start, 8)
		}
		return part
	}

	name := next(nameSize)
	a.Name = name.field(name.left())
	tp := next(typeSize)
	if dt := tp.datatype(); tp.err == nil {
		a.Datatype = dt
	}
	sp := next(spaceSize)
	if ds := sp.dataspace(); sp.err == nil {
		a.Dataspace = ds
	}
	a.Data = p.rest()
	return a
}
