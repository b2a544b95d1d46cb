package message

// Filter identifiers registered with the HDF Group.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID uint16
	// Flags bit 0 marks a filter that may be skipped when it fails.
	Flags      uint16
	Name       string
	ClientData []uint32
}

// FilterPipeline lists the filters applied to each chunk.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// firstCustomFilter is the lowest identifier that always carries a name.
const firstCustomFilter = 256

func (p *payload) filterPipeline() *FilterPipeline {
	fp := &FilterPipeline{Version: p.u8()}
	n := int(p.u8())
	if fp.Version == 1 {
		p.skip(6)
	}
	for j := 0; j < n; j++ {
		if p.err != nil {
			break
		}
		fp.Filters = append(fp.Filters, p.filter(fp.Version))
	}
	return fp
}

func (p *payload) filter(version uint8) FilterInfo {
	f := FilterInfo{ID: p.u16()}
	var nameLen int
	if version == 1 || f.ID >= firstCustomFilter {
		nameLen = int(p.u16())
	}
	f.Flags = p.u16()
	values := int(p.u16())

	// Version 1 pads the name to 8 bytes and the values to an even count.
	if version == 1 {
		nameLen = align(nameLen, 8)
	}
	f.Name = p.field(nameLen)
	if values > 0 {
		f.ClientData = make([]uint32, values)
		for i := range f.ClientData {
			f.ClientData[i] = p.u32()
		}
	}
	if version == 1 && values%2 == 1 {
		p.skip(4)
	}
	return f
}
