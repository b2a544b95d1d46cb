package message

// DataspaceType is the kind of dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace gives the shape of a dataset or attribute.
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64

	// MaxDims is nil when the file does not record maximum sizes.
	MaxDims []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements returns the number of elements the dataspace holds.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		if len(m.Dimensions) == 0 {
			return 0
		}
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

func (p *payload) dataspace() *Dataspace {
	ds := &Dataspace{Version: p.u8()}
	rank := int(p.u8())
	flags := p.u8()

	// Version 1 infers the kind from the rank and reserves five bytes;
	// later versions store the kind.
	if ds.Version < 2 {
		p.skip(5)
		ds.SpaceType = DataspaceSimple
		if rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
	} else {
		ds.SpaceType = DataspaceType(p.u8())
	}
	if ds.SpaceType != DataspaceSimple || rank == 0 || p.err != nil {
		return ds
	}

	ds.Dimensions = p.lengths(rank)
	if flags&0x01 != 0 {
		ds.MaxDims = p.lengths(rank)
	}
	return ds
}

func (p *payload) lengths(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = p.length()
	}
	return out
}
