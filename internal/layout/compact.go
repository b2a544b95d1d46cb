package layout

import "github.com/robert-malhotra/go-h5dap/internal/message"

// compact storage lives inside the object header.
type compact struct {
	data []byte
}

func (c *compact) Class() message.LayoutClass { return message.LayoutCompact }

func (c *compact) Allocated() bool { return true }

func (c *compact) Size() uint64 { return uint64(len(c.data)) }

func (c *compact) ReadAt(p []byte, off uint64) error {
	if err := checkRange(p, off, c.Size()); err != nil {
		return err
	}
	copy(p, c.data[off:])
	return nil
}
