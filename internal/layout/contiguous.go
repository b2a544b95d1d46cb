package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-h5dap/internal/binary"
	"github.com/robert-malhotra/go-h5dap/internal/message"
)

// contiguous storage is one block of the file. The block has an undefined
// address until the dataset is first written.
type contiguous struct {
	address uint64
	size    uint64
	fill    []byte
	reader  *binary.Reader
}

func newContiguous(
	msg *message.DataLayout,
	space *message.Dataspace,
	dt *message.Datatype,
	fill *message.FillValue,
	r *binary.Reader,
) *contiguous {
	c := &contiguous{address: msg.Address, size: msg.Size, reader: r}
	if c.size == 0 && space != nil && dt != nil {
		c.size = space.NumElements() * uint64(dt.Size)
	}
	// A fill value of the wrong width cannot tile elements.
	if fill != nil && fill.IsDefined && dt != nil && len(fill.Value) == int(dt.Size) {
		c.fill = fill.Value
	}
	return c
}

func (c *contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

func (c *contiguous) Allocated() bool { return !c.reader.IsUndefinedOffset(c.address) }

func (c *contiguous) Size() uint64 { return c.size }

func (c *contiguous) ReadAt(p []byte, off uint64) error {
	if err := checkRange(p, off, c.size); err != nil {
		return err
	}
	if !c.Allocated() {
		fillPattern(p, off, c.fill)
		return nil
	}
	if err := c.reader.At(int64(c.address + off)).ReadInto(p); err != nil {
		return fmt.Errorf("reading contiguous data at %d: %w", c.address+off, err)
	}
	return nil
}
