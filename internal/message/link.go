package message

// LinkType is the kind of target a link names.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is one member of a new-style group.
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	Charset       uint8
	Name          string

	// ObjectAddress is set for hard links.
	ObjectAddress uint64

	// SoftLinkValue is the target path of a soft link, absolute or
	// relative to the group holding the link.
	SoftLinkValue string

	// ExternalFile and ExternalPath locate the target of an external link.
	ExternalFile string
	ExternalPath string
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }

func (m *Link) IsSoft() bool { return m.LinkType == LinkTypeSoft }

func (m *Link) IsExternal() bool { return m.LinkType == LinkTypeExternal }

// Link message flags.
const (
	linkNameSizeMask = 0x03
	linkHasOrder     = 0x04
	linkHasType      = 0x08
	linkHasCharset   = 0x10
)

func (p *payload) link() *Link {
	l := &Link{Version: p.u8()}
	flags := p.u8()
	if flags&linkHasType != 0 {
		l.LinkType = LinkType(p.u8())
	}
	if flags&linkHasOrder != 0 {
		l.CreationOrder = p.uint(8)
	}
	if flags&linkHasCharset != 0 {
		l.Charset = p.u8()
	}
	l.Name = string(p.bytes(int(p.uint(1 << (flags & linkNameSizeMask)))))

	switch l.LinkType {
	case LinkTypeHard:
		l.ObjectAddress = p.addr()
	case LinkTypeSoft:
		l.SoftLinkValue = string(p.bytes(int(p.u16())))
	case LinkTypeExternal:
		info := p.sub(int(p.u16()))
		info.skip(1) // flags
		l.ExternalFile = info.cstring()
		l.ExternalPath = info.field(info.left())
		if info.err != nil {
			p.err = info.err
		}
	}
	return l
}
