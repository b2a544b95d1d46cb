package message

// FillValue is the value unwritten dataset elements read as.
type FillValue struct {
	Version        uint8
	SpaceAllocTime uint8
	FillWriteTime  uint8

	// IsDefined is false when the file leaves unwritten data undefined. A
	// defined fill with no Value is the library default of zeros.
	IsDefined bool
	Value     []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

// Version 3 flag bits.
const (
	fillUndefined    = 0x10
	fillValuePresent = 0x20
)

func (p *payload) fillValue() *FillValue {
	fv := &FillValue{Version: p.u8()}
	switch fv.Version {
	case 1, 2:
		fv.SpaceAllocTime = p.u8()
		fv.FillWriteTime = p.u8()
		fv.IsDefined = p.u8() != 0
		// Version 2 omits the value when it is undefined.
		if fv.Version == 1 || fv.IsDefined {
			fv.Value = p.copied(int(p.u32()))
		}
	case 3:
		flags := p.u8()
		fv.SpaceAllocTime = flags & 0x03
		fv.FillWriteTime = (flags >> 2) & 0x03
		fv.IsDefined = flags&fillUndefined == 0
		if flags&fillValuePresent != 0 {
			fv.Value = p.copied(int(p.u32()))
		}
	default:
		p.failf("unsupported version %d", fv.Version)
	}
	return fv
}
